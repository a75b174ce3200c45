package schema

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	kpool "github.com/datasmith-io/datasmith/pkg/conn/db/postgres/pool"
)

// Interface upgrades the database schema from a repository of versioned
// DDL directories (<repo>/v1, <repo>/v2, ...; each holding .sql files
// applied in lexical order).
type Interface interface {
	// Version reports the highest applied schema version. 0 = virgin database.
	Version(ctx context.Context) (int, error)

	// Upgrade applies every version newer than the current one.
	Upgrade(ctx context.Context) error
}

type pgSchema struct {
	pool             kpool.Pool
	schemaRepository string
}

// New creates a new schema upgrader.
//
// # Args
//
// - schemaRepository: path to the schema repository directory.
func New(pool kpool.Pool, schemaRepository string) *pgSchema {
	return &pgSchema{
		pool:             pool,
		schemaRepository: schemaRepository,
	}
}

var _ Interface = &pgSchema{}

// Null is a schema interface without a repository. Upgrade always fails.
func Null() *nullSchema {
	return &nullSchema{}
}

type nullSchema struct{}

func (nullSchema) Version(ctx context.Context) (int, error) {
	return -1, nil
}

func (nullSchema) Upgrade(ctx context.Context) error {
	return errors.New("no schema repository available")
}

type version struct {
	Version int
	Root    string
}

func (v version) Apply(ctx context.Context, conn kpool.Queryer) error {
	entries, err := os.ReadDir(v.Root)
	if err != nil {
		return err
	}
	names := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)

	for _, name := range names {
		query, err := os.ReadFile(filepath.Join(v.Root, name))
		if err != nil {
			return err
		}
		if _, err := conn.Exec(ctx, string(query)); err != nil {
			return fmt.Errorf("applying %s: %w", name, err)
		}
	}
	return nil
}

func (s *pgSchema) Version(ctx context.Context) (int, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return -1, err
	}
	defer conn.Release()

	var version int
	if err := conn.QueryRow(
		ctx, `select coalesce(max("version"), 0) from "schema_version"`,
	).Scan(&version); err != nil {
		if pgerr := new(pgconn.PgError); errors.As(err, &pgerr) {
			if pgerr.Code == pgerrcode.UndefinedTable {
				return 0, nil
			}
		}
		return -1, err
	}
	return version, nil
}

func (s *pgSchema) versions() ([]version, error) {
	entries, err := os.ReadDir(s.schemaRepository)
	if err != nil {
		return nil, err
	}

	found := []version{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "v") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, "v"))
		if err != nil {
			continue
		}
		found = append(found, version{
			Version: n,
			Root:    filepath.Join(s.schemaRepository, name),
		})
	}

	slices.SortFunc(found, func(a, b version) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return found, nil
}

func (s *pgSchema) Upgrade(ctx context.Context) error {
	current, err := s.Version(ctx)
	if err != nil {
		return err
	}

	versions, err := s.versions()
	if err != nil {
		return err
	}

	for _, v := range versions {
		if v.Version <= current {
			continue
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(
			ctx,
			`create table if not exists "schema_version" ("version" integer primary key)`,
		); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if err := v.Apply(ctx, tx); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if _, err := tx.Exec(
			ctx,
			`insert into "schema_version" ("version") values ($1) on conflict do nothing`,
			v.Version,
		); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}
