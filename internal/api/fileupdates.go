package api

import (
	"context"
	"encoding/json"

	"github.com/nkall/periscope/internal/domain"
	"github.com/nkall/periscope/internal/logging"
)

// FileUpdateSink receives modification notices from the file-update channel.
type FileUpdateSink interface {
	MarkModified(path string)
}

// FileUpdateChannel is the single, session-independent subscription feeding
// the context freshness tracker. It is opened once at application start and
// lives for the process; failures are logged and swallowed so the chat flow
// never depends on it.
type FileUpdateChannel struct {
	client  HTTPClient
	baseURL string
	sink    FileUpdateSink
	log     *logging.Logger
}

// NewFileUpdateChannel creates a channel feeding sink.
func NewFileUpdateChannel(baseURL string, client HTTPClient, sink FileUpdateSink) *FileUpdateChannel {
	return &FileUpdateChannel{
		client:  client,
		baseURL: baseURL,
		sink:    sink,
		log:     logging.New("fileupdates"),
	}
}

// Run subscribes and routes modification events until the stream ends or
// ctx is done. Always returns nil: a missing or broken file-update feed is
// silently absent, never an error the caller must handle.
func (f *FileUpdateChannel) Run(ctx context.Context) error {
	body, err := openStream(ctx, f.client, f.baseURL+"/api/files/updates")
	if err != nil {
		f.log.Warn("open_failed", nil, err)
		return nil
	}
	defer body.Close()

	go func() {
		<-ctx.Done()
		body.Close()
	}()

	err = readEvents(body, func(data string) {
		var ev domain.FileUpdateEvent
		if uerr := json.Unmarshal([]byte(data), &ev); uerr != nil {
			f.log.Warn("malformed_event", map[string]interface{}{"data": truncate(data, 200)}, uerr)
			return
		}
		if ev.Type == domain.FileEventModified && ev.FilePath != "" {
			f.sink.MarkModified(ev.FilePath)
		}
	})
	if err != nil && ctx.Err() == nil {
		f.log.Warn("stream_interrupted", nil, err)
	}
	return nil
}

// Start runs the channel on a background goroutine.
func (f *FileUpdateChannel) Start(ctx context.Context) {
	go f.Run(ctx)
}
