package entity

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	MessageShown = "Image shown"

	DefaultTextSize = 27
	DestinationShow = "show"
)

type BackgroundKind int

const (
	BackgroundLocal BackgroundKind = iota
	BackgroundRemote
	BackgroundBlank
)

func (k BackgroundKind) String() string {
	switch k {
	case BackgroundLocal:
		return "local"
	case BackgroundRemote:
		return "remote"
	case BackgroundBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Background says where the cover photo comes from. Value holds the
// path for Local and the URL for Remote and is empty for Blank.
type Background struct {
	Kind  BackgroundKind
	Value string
}

// ParseBackground decodes "cmp:<path>", "url:<url>" or "blank".
func ParseBackground(raw string) (Background, error) {
	switch {
	case strings.HasPrefix(raw, "cmp:"):
		return Background{Kind: BackgroundLocal, Value: raw[len("cmp:"):]}, nil
	case strings.HasPrefix(raw, "blank"):
		return Background{Kind: BackgroundBlank}, nil
	case strings.HasPrefix(raw, "url:"):
		return Background{Kind: BackgroundRemote, Value: raw[len("url:"):]}, nil
	default:
		return Background{}, NewError(KindInvalidBackground, "Invalid bg parameter", nil)
	}
}

type NewsType string

const (
	NewsNormal   NewsType = "normal"
	NewsBreaking NewsType = "breaking"
	NewsPhoto    NewsType = "photo"
)

// ParseNewsType never fails: anything that is not "normal" or "photo"
// gets the breaking-news styling.
func ParseNewsType(raw string) NewsType {
	switch NewsType(raw) {
	case NewsNormal:
		return NewsNormal
	case NewsPhoto:
		return NewsPhoto
	default:
		return NewsBreaking
	}
}

type Destination struct {
	Show bool
	Dir  string
}

func ParseDestination(raw string) Destination {
	if raw == DestinationShow {
		return Destination{Show: true}
	}
	return Destination{Dir: raw}
}

type RenderRequest struct {
	Background  Background
	Text        string
	TextSize    int
	NewsType    NewsType
	Replace     string
	Destination Destination
}

// RenderParams is the loosely typed form accepted from the CLI and the
// HTTP API.
type RenderParams struct {
	Background string `json:"background" mapstructure:"background"`
	Text       string `json:"text" mapstructure:"text"`
	TextSize   int    `json:"text_size" mapstructure:"text_size"`
	NewsType   string `json:"news_type" mapstructure:"news_type"`
	Replace    string `json:"replace" mapstructure:"replace"`
	SaveAt     string `json:"save_at" mapstructure:"save_at"`
}

func (p RenderParams) Request() (RenderRequest, error) {
	bg, err := ParseBackground(p.Background)
	if err != nil {
		return RenderRequest{}, err
	}
	size := p.TextSize
	if size == 0 {
		size = DefaultTextSize
	}
	newsType := p.NewsType
	if newsType == "" {
		newsType = string(NewsNormal)
	}
	saveAt := p.SaveAt
	if saveAt == "" {
		saveAt = DestinationShow
	}
	return RenderRequest{
		Background:  bg,
		Text:        p.Text,
		TextSize:    size,
		NewsType:    ParseNewsType(newsType),
		Replace:     p.Replace,
		Destination: ParseDestination(saveAt),
	}, nil
}

type Result struct {
	Status   string `json:"status"`
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
	Kind     Kind   `json:"-"`
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func SavedResult(location string) Result {
	return Result{Status: StatusSuccess, Location: location}
}

func ShownResult() Result {
	return Result{Status: StatusSuccess, Message: MessageShown}
}

// ErrorResult flattens any error into the external result shape. Typed
// errors keep their own message even when wrapped.
func ErrorResult(err error) Result {
	var e *Error
	if errors.As(err, &e) {
		return Result{Status: StatusError, Message: e.Message, Kind: e.Kind}
	}
	return Result{Status: StatusError, Message: err.Error(), Kind: KindUnexpected}
}

// CoverEvent is published after a cover has been saved.
type CoverEvent struct {
	Location   string    `json:"location"`
	Background string    `json:"background"`
	NewsType   NewsType  `json:"news_type"`
	RenderedAt time.Time `json:"rendered_at"`
}
