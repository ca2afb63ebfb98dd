package catalog

import (
	"context"
	"errors"
)

// fakeFetcher is the only Fetcher implementation in this repository;
// the real downloader is out of scope (spec.md §1's non-goal).
type fakeFetcher struct {
	audio map[string][]byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceID string) ([]byte, error) {
	data, ok := f.audio[sourceID]
	if !ok {
		return nil, errors.New("fakeFetcher: unknown source")
	}
	return data, nil
}
