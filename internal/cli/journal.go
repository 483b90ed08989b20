package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ottermq/otterconf/config"
	"github.com/ottermq/otterconf/pkg/persistence"
	"github.com/ottermq/otterconf/pkg/persistence/implementations/dummy"
	"github.com/ottermq/otterconf/pkg/persistence/implementations/json"
	"github.com/ottermq/otterconf/pkg/persistence/implementations/sqlite"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type journalOptions struct {
	typ  string
	path string
}

func (o *journalOptions) bind(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().StringVar(&o.path, "journal", cfg.JournalPath, "Record runs in a journal at this path (sqlite database file or json directory)")
	cmd.Flags().StringVar(&o.typ, "journal-type", cfg.JournalType, "Journal backend: sqlite, json or none")
}

func (o *journalOptions) config() *persistence.Config {
	typ := strings.ToLower(o.typ)
	if o.path == "" {
		typ = "none"
	}
	return &persistence.Config{Type: typ, Path: o.path}
}

// openJournal returns the journal backend named by cfg.Type.
func openJournal(cfg *persistence.Config) (persistence.Journal, error) {
	switch cfg.Type {
	case "none", "":
		return &dummy.DummyJournal{}, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("creating journal directory: %w", err)
			}
		}
		return sqlite.NewSQLiteJournal(cfg)
	case "json":
		return json.NewJsonJournal(cfg)
	default:
		return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
	}
}

// open never fails a run: a journal that cannot be opened is replaced by a
// no-op one.
func (o *journalOptions) open() persistence.Journal {
	cfg := o.config()
	j, err := openJournal(cfg)
	if err != nil {
		log.Warn().Err(err).Str("type", cfg.Type).Str("path", cfg.Path).Msg("Journal unavailable, runs will not be recorded")
		return &dummy.DummyJournal{}
	}
	return j
}
