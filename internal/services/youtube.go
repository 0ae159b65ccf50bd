package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"

	"flashdeck-backend/internal/logger"
)

// VideoTextSource fetches study text for a video URL.
type VideoTextSource interface {
	Text(ctx context.Context, videoURL string) (string, error)
}

type YouTubeService struct {
	transcriptAPI *ytapi.YouTubeTranscriptApi
	ytClient      *yt.Client
}

func NewYouTubeService() *YouTubeService {
	return &YouTubeService{
		transcriptAPI: ytapi.NewYouTubeTranscriptApi(),
		ytClient:      &yt.Client{},
	}
}

// Text returns the video's captions, falling back to its title and
// description when no caption track exists.
func (s *YouTubeService) Text(ctx context.Context, videoURL string) (string, error) {
	videoID, err := ExtractVideoID(videoURL)
	if err != nil {
		return "", &ValidationError{Fields: map[string]string{"url": err.Error()}}
	}

	transcript, err := s.GetTranscript(videoID)
	if err == nil {
		return truncateRunes(transcript, MaxExtractedChars), nil
	}
	logger.FromContext(ctx).Info("no transcript, falling back to description", "video_id", videoID, "error", err)

	video, metaErr := s.ytClient.GetVideoContext(ctx, videoID)
	if metaErr != nil {
		return "", &UpstreamError{Message: "Could not fetch video captions or details", Err: metaErr}
	}

	text := strings.TrimSpace(video.Title + "\n\n" + video.Description)
	if text == "" {
		return "", &UpstreamError{Message: "Video has no captions or description"}
	}
	return truncateRunes(text, MaxExtractedChars), nil
}

// GetTranscript fetches the captions for a YouTube video
func (s *YouTubeService) GetTranscript(videoID string) (string, error) {
	transcript, err := s.transcriptAPI.GetTranscript(videoID, []string{"en", "en-US", "en-GB"})
	if err != nil {
		// Fallback: request any available language
		transcript, err = s.transcriptAPI.GetTranscript(videoID, nil)
		if err != nil {
			return "", fmt.Errorf("no subtitles available: %w", err)
		}
	}

	var fullText strings.Builder
	for _, entry := range transcript.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		fullText.WriteString(text)
		fullText.WriteString(" ")
	}

	cleaned := strings.TrimSpace(fullText.String())
	if cleaned == "" {
		return "", fmt.Errorf("subtitle track is empty")
	}
	return cleaned, nil
}

// ExtractVideoID accepts watch, short-link, shorts and embed URLs.
func ExtractVideoID(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("Invalid video URL")
	}

	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/shorts/"), strings.HasPrefix(u.Path, "/embed/"), strings.HasPrefix(u.Path, "/live/"):
			parts := strings.Split(strings.Trim(u.Path, "/"), "/")
			if len(parts) >= 2 {
				id = parts[1]
			}
		}
	default:
		return "", fmt.Errorf("Only YouTube URLs are supported")
	}

	if len(id) != 11 {
		return "", fmt.Errorf("Invalid video URL")
	}
	return id, nil
}
