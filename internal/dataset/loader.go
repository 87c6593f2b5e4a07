package dataset

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	errx "github.com/adam-setup/server/internal/core/error"
	logx "github.com/adam-setup/server/pkg/logger"
)

// Snapshot holds the three setup entity tables for one (user, partner)
// account scope.
type Snapshot struct {
	LineItems       *Table
	Campaigns       *Table
	InsertionOrders *Table
}

// Loader retrieves setup data snapshots. Implementations return an error
// matching errx.ErrDataNotFound when the account has no snapshot, which
// the execution node treats as terminal rather than retryable.
type Loader interface {
	LoadSnapshot(ctx context.Context, user, partner string) (*Snapshot, error)
	Advertisers(ctx context.Context, user, partner string) ([]string, error)
}

// DirLoader reads snapshots from a directory tree laid out as
// root/<user>/<partner>/{line_items,campaigns,insertion_orders}.csv.
type DirLoader struct {
	Root string
}

// NewDirLoader creates a loader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{Root: dir}
}

func (l *DirLoader) LoadSnapshot(ctx context.Context, user, partner string) (*Snapshot, error) {
	base := filepath.Join(l.Root, user, partner)

	lineItems, err := l.readTable(filepath.Join(base, "line_items.csv"))
	if err != nil {
		return nil, err
	}
	campaigns, err := l.readTable(filepath.Join(base, "campaigns.csv"))
	if err != nil {
		return nil, err
	}
	insertionOrders, err := l.readTable(filepath.Join(base, "insertion_orders.csv"))
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("user", user).
		Str("partner", partner).
		Int("line_items", lineItems.Len()).
		Int("campaigns", campaigns.Len()).
		Int("insertion_orders", insertionOrders.Len()).
		Msg("Loaded setup snapshot")

	return &Snapshot{
		LineItems:       lineItems,
		Campaigns:       campaigns,
		InsertionOrders: insertionOrders,
	}, nil
}

// Advertisers returns the distinct advertiser names across the snapshot,
// sorted for stable prompting.
func (l *DirLoader) Advertisers(ctx context.Context, user, partner string) ([]string, error) {
	snap, err := l.LoadSnapshot(ctx, user, partner)
	if err != nil {
		return nil, err
	}
	return AdvertiserNames(snap), nil
}

// AdvertiserNames returns the sorted distinct advertiser names across
// all three snapshot tables.
func AdvertiserNames(snap *Snapshot) []string {
	seen := map[string]struct{}{}
	for _, t := range []*Table{snap.Campaigns, snap.InsertionOrders, snap.LineItems} {
		if !t.HasColumn("Advertiser Name") {
			continue
		}
		for i := 0; i < t.Len(); i++ {
			row := t.Row(i)
			if row.Empty("Advertiser Name") {
				continue
			}
			seen[row.Str("Advertiser Name")] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (l *DirLoader) readTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logx.Warn().Str("path", path).Msg("Snapshot file missing")
			return nil, errx.WrapDataNotFound(err)
		}
		return nil, err
	}
	defer f.Close()

	t, err := ReadCSV(f)
	if err != nil {
		logx.Error().Err(err).Str("path", path).Msg("Failed to parse snapshot file")
		return nil, err
	}
	return t, nil
}

var _ Loader = (*DirLoader)(nil)
