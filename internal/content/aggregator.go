package content

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const initialImages = 8

const loadMoreBatch = 4

var ErrUnknownType = errors.New("unknown content type")

// Aggregator combines the curated set with live provider results.
type Aggregator struct {
	music   MusicProvider
	videos  VideoProvider
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time
}

func NewAggregator(music MusicProvider, videos VideoProvider, timeout time.Duration, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		music:   music,
		videos:  videos,
		timeout: timeout,
		log:     log.With().Str("component", "content").Logger(),
		now:     time.Now,
	}
}

type providerCall struct {
	name  string
	fetch func(ctx context.Context) ([]Item, error)
	items []Item
}

// GetContent never fails: provider errors are logged and the curated
// items are returned on their own.
func (a *Aggregator) GetContent(ctx context.Context, mood string) Bundle {
	content := curated.clone()

	switch mood {
	case "Happy":
		content.Music = filterCategory(content.Music, "Lo-Fi")
		content.Videos = filterCategory(content.Videos, "Humor")
	case "Anxious":
		content.Music = filterCategory(content.Music, "Ambient", "Nature")
		content.Meditations = filterCategory(content.Meditations, "Guided")
	}

	content.Images = a.generate(KindImages, 0, initialImages)

	var moodCall *providerCall
	switch mood {
	case "Happy":
		moodCall = a.musicCall("happy pop", 4)
	case "Calm":
		moodCall = a.videoCall("guided meditation", 4)
	}
	generalMusic := a.musicCall("instrumental relaxation", 2)
	generalVideos := a.videoCall("nature documentary", 2)

	calls := []*providerCall{generalMusic, generalVideos}
	if moodCall != nil {
		calls = append(calls, moodCall)
	}
	a.run(ctx, calls)

	switch mood {
	case "Happy":
		content.Music = append(content.Music, moodCall.items...)
	case "Calm":
		content.Meditations = append(content.Meditations, moodCall.items...)
	}
	content.Music = append(content.Music, generalMusic.items...)
	content.Videos = append(content.Videos, generalVideos.items...)

	return content
}

func (a *Aggregator) musicCall(query string, limit int) *providerCall {
	return &providerCall{
		name: "spotify:" + query,
		fetch: func(ctx context.Context) ([]Item, error) {
			return a.music.SearchTracks(ctx, query, limit)
		},
	}
}

func (a *Aggregator) videoCall(query string, limit int) *providerCall {
	return &providerCall{
		name: "youtube:" + query,
		fetch: func(ctx context.Context) ([]Item, error) {
			return a.videos.SearchVideos(ctx, query, limit)
		},
	}
}

// run executes the calls concurrently, each under its own timeout.
func (a *Aggregator) run(ctx context.Context, calls []*providerCall) {
	var wg sync.WaitGroup
	for _, c := range calls {
		wg.Add(1)
		go func(c *providerCall) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			items, err := c.fetch(callCtx)
			if err != nil {
				ev := a.log.Warn()
				if errors.Is(err, ErrNotConfigured) {
					ev = a.log.Debug()
				}
				ev.Err(err).Str("call", c.name).Msg("content provider failed")
				return
			}
			c.items = items
		}(c)
	}
	wg.Wait()
}

// LoadMore returns a fresh batch of items for an infinite-scroll list.
func (a *Aggregator) LoadMore(kind Kind, currentCount int) ([]Item, error) {
	if kind != KindImages {
		if _, ok := curated.list(kind); !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
		}
	}
	if currentCount < 0 {
		currentCount = 0
	}
	return a.generate(kind, currentCount, loadMoreBatch), nil
}

func (a *Aggregator) generate(kind Kind, currentCount, count int) []Item {
	items := make([]Item, 0, count)
	stamp := a.now().UnixMilli()
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("%s-%d-%.5f", kind, stamp, rand.Float64())
		if kind == KindImages {
			items = append(items, Item{ID: id, URL: imagePool[rand.Intn(len(imagePool))]})
			continue
		}
		pool, _ := curated.list(kind)
		base := pool[rand.Intn(len(pool))]
		base.ID = id
		base.Title = fmt.Sprintf("%s (More %d)", base.Title, currentCount+i+1)
		base.Description = base.Description + " (Additional content loaded.)"
		items = append(items, base)
	}
	return items
}

func (a *Aggregator) UniverseMessage() string {
	return universeMessages[rand.Intn(len(universeMessages))]
}
