// Package publish uploads rendered shorts to YouTube.
package publish

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/ByLCY/versereel/metadata"
)

const (
	defaultCategoryID = "27" // Education
	defaultPrivacy    = "private"
	maxTitleRunes     = 100
	shortsTag         = "#Shorts"
)

// Publisher uploads a video with its metadata and returns the public URL.
type Publisher interface {
	Publish(ctx context.Context, file string, meta metadata.Metadata) (Result, error)
}

// Result 是上传后的视频信息。
type Result struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
}

// Options configures the YouTube publisher.
type Options struct {
	Privacy    string // private | unlisted | public
	CategoryID string
	Log        *zap.Logger
}

type YouTube struct {
	service *youtube.Service
	opts    Options
}

var _ Publisher = (*YouTube)(nil)

// NewYouTube authenticates with a service-account key file (JWT flow).
func NewYouTube(ctx context.Context, serviceAccountFile string, opts Options) (*YouTube, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}
	cfg, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}
	service, err := youtube.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &YouTube{service: service, opts: opts}, nil
}

// Publish implements Publisher.
func (y *YouTube) Publish(ctx context.Context, file string, meta metadata.Metadata) (Result, error) {
	video := Video(meta, y.opts)
	f, err := os.Open(file)
	if err != nil {
		return Result{}, fmt.Errorf("failed to open video file: %w", err)
	}
	defer f.Close()

	y.opts.Log.Info("uploading to youtube", zap.String("file", file), zap.String("title", video.Snippet.Title))
	resp, err := y.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		Context(ctx).
		Do()
	if err != nil {
		return Result{}, fmt.Errorf("upload failed: %w", err)
	}
	return Result{VideoID: resp.Id, URL: "https://youtube.com/shorts/" + resp.Id}, nil
}

// Video builds the upload payload: the title is cut to YouTube's limit and
// the description always carries the #Shorts tag.
func Video(meta metadata.Metadata, opts Options) *youtube.Video {
	title := meta.Title
	if r := []rune(title); len(r) > maxTitleRunes {
		title = string(r[:maxTitleRunes])
	}
	desc := meta.Body()
	if !strings.Contains(strings.ToLower(desc), strings.ToLower(shortsTag)) {
		desc = strings.TrimSpace(desc + " " + shortsTag)
	}
	privacy := opts.Privacy
	if privacy == "" {
		privacy = defaultPrivacy
	}
	category := opts.CategoryID
	if category == "" {
		category = defaultCategoryID
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title,
			Description: desc,
			Tags:        meta.Tags(),
			CategoryId:  category,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           privacy,
			SelfDeclaredMadeForKids: false,
		},
	}
}
