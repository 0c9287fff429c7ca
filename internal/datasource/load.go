package datasource

import (
	"context"
	"fmt"
	"os"

	"github.com/vanderheijden86/kgview/pkg/loader"
	"github.com/vanderheijden86/kgview/pkg/model"
)

// Mastery loads scores from the freshest valid source among Paths. It
// satisfies loader.MasterySource.
type Mastery struct {
	Paths  []string
	Logger func(msg string)
}

// LoadMastery discovers, validates, selects and reads the best source.
func (m Mastery) LoadMastery(ctx context.Context) (model.Mastery, error) {
	sources := DiscoverSources(m.Paths, DiscoveryOptions{
		ValidateAfterDiscovery: true,
		Logger:                 m.Logger,
	})
	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(ctx, best)
}

// LoadFromSource reads mastery from a specific DataSource, dispatching to the
// appropriate reader based on source type.
func LoadFromSource(ctx context.Context, source DataSource) (model.Mastery, error) {
	switch source.Type {
	case SourceTypeSQLite:
		store, err := OpenSQLiteReader(source.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer store.Close()
		return store.LoadMastery(ctx)

	case SourceTypeJSON:
		data, err := os.ReadFile(source.Path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", source.Path, err)
		}
		return loader.DecodeMastery(data)

	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}
