package pkg

import (
	"os"

	"github.com/samber/oops"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/warren2314/OSS-Checker/pkg/log"
	"github.com/warren2314/OSS-Checker/pkg/report"
	"github.com/warren2314/OSS-Checker/pkg/store"
)

func (ac AppConfig) show(c *cli.Context) error {
	path := c.String("db")
	if path == "" {
		return xerrors.New("--db is required")
	}
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}

	if _, err = os.Stat(path); err != nil {
		return oops.With("file_path", path).Wrapf(err, "report archive error")
	}
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	meta, err := s.Metadata()
	if err != nil {
		return xerrors.Errorf("%s: %w", path, err)
	}
	log.Debug("Archived report", log.FilePath(path), log.Any("created_at", meta.CreatedAt),
		log.Int("components", meta.Components), log.Int("vulnerabilities", meta.Vulnerabilities))

	m, err := s.Load()
	if err != nil {
		return err
	}
	return ac.render("", format, m.Filter(c.Bool("include-clean")))
}
