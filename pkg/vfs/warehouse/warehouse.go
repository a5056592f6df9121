// Package warehouse provides a read-mostly storage backend over SQL databases.
//
// "/" lists datasets (schemas; sqlite exposes attached databases such as "main") and
// "/<dataset>" lists tables. Reading a table returns a JSON row collection:
//
//	{"columns":["id","name"],"rows":[[1,"ada"],[2,"grace"]]}
//
// Writes are rejected with KindReadOnly; deleting a table drops it.
package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Exported constants.
const (
	ID = "warehouse"

	DriverKey   = "driver"
	DSNKey      = "dsn"
	RowLimitKey = "row_limit"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultRowLimit = 1000
)

// Rows is the JSON document returned by Read.
type Rows struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Backend is the warehouse backend. One *sql.DB is opened per profile.
type Backend struct {
	mu  sync.Mutex
	dbs map[string]*handle
}

type handle struct {
	db      *sql.DB
	dialect dialect
}

// New creates a warehouse backend.
func New() *Backend {
	return &Backend{dbs: make(map[string]*handle)}
}

// Metadata implements vfs.Backend.
func (b *Backend) Metadata() vfs.Metadata {
	return vfs.Metadata{
		ID:           ID,
		DisplayName:  "Data Warehouse",
		Description:  "Tabular datasets over PostgreSQL or SQLite",
		ConfigFields: []string{DriverKey, DSNKey},
	}
}

// Close closes every open database.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error

	for id, h := range b.dbs {
		if err := h.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(b.dbs, id)
	}

	return firstErr
}

// List implements vfs.Backend.
func (b *Backend) List(ctx context.Context, profile vfs.Profile, dir string) ([]vfs.Item, error) {
	dir = vfs.CleanPath(dir)

	h, err := b.open(ctx, profile, "list", dir)
	if err != nil {
		return nil, err
	}

	segments := vfs.Segments(dir)

	switch len(segments) {
	case 0:
		names, err := h.dialect.datasets(ctx, h.db)
		if err != nil {
			return nil, classify(err, "list", dir)
		}

		return namedItems(dir, names, vfs.TypeDataset), nil
	case 1:
		names, err := b.tables(ctx, h, "list", segments[0])
		if err != nil {
			return nil, err
		}

		return vfs.WithParent(dir, namedItems(dir, names, vfs.TypeTable)), nil
	default:
		return nil, errors.Newf(errors.KindNotFound, "list", dir, "not a dataset")
	}
}

// Read implements vfs.Backend.
func (b *Backend) Read(ctx context.Context, profile vfs.Profile, itemID string) ([]byte, error) {
	itemID = vfs.CleanPath(itemID)

	h, err := b.open(ctx, profile, "read", itemID)
	if err != nil {
		return nil, err
	}

	dataset, table, err := b.locateTable(ctx, h, "read", itemID)
	if err != nil {
		return nil, err
	}

	limit, err := rowLimit(profile)
	if err != nil {
		return nil, errors.New(errors.KindValidation, "read", itemID, err)
	}

	//nolint:gosec // identifiers are quoted by the dialect
	query := fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d", h.dialect.quote(dataset), h.dialect.quote(table), limit)

	rows, err := h.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err, "read", itemID)
	}

	defer func() { _ = rows.Close() }()

	doc, err := collect(rows)
	if err != nil {
		return nil, classify(err, "read", itemID)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.New(errors.KindUnreadable, "read", itemID, err)
	}

	return data, nil
}

// Write implements vfs.Backend. Tables are never written through the file model.
func (b *Backend) Write(_ context.Context, _ vfs.Profile, itemID string, _ []byte) error {
	return errors.Newf(errors.KindReadOnly, "write", vfs.CleanPath(itemID), "warehouse tables are read-only")
}

// Delete implements vfs.Backend by dropping the table. Datasets cannot be deleted.
func (b *Backend) Delete(ctx context.Context, profile vfs.Profile, itemID string) error {
	itemID = vfs.CleanPath(itemID)

	h, err := b.open(ctx, profile, "delete", itemID)
	if err != nil {
		return err
	}

	if len(vfs.Segments(itemID)) < 2 { //nolint:mnd // dataset/table
		return errors.Newf(errors.KindReadOnly, "delete", itemID, "datasets cannot be deleted")
	}

	dataset, table, err := b.locateTable(ctx, h, "delete", itemID)
	if err != nil {
		return err
	}

	//nolint:gosec // identifiers are quoted by the dialect
	stmt := fmt.Sprintf("DROP TABLE %s.%s", h.dialect.quote(dataset), h.dialect.quote(table))

	if _, err := h.db.ExecContext(ctx, stmt); err != nil {
		return classify(err, "delete", itemID)
	}

	return nil
}

// locateTable resolves /<dataset>/<table> and checks that the table exists.
func (b *Backend) locateTable(ctx context.Context, h *handle, op, itemID string) (string, string, error) {
	segments := vfs.Segments(itemID)

	switch len(segments) {
	case 0, 1:
		return "", "", errors.New(errors.KindUnreadable, op, itemID, nil)
	case 2: //nolint:mnd // dataset/table
	default:
		return "", "", errors.New(errors.KindNotFound, op, itemID, nil)
	}

	names, err := b.tables(ctx, h, op, segments[0])
	if err != nil {
		return "", "", err
	}

	if !slices.Contains(names, segments[1]) {
		return "", "", errors.New(errors.KindNotFound, op, itemID, nil)
	}

	return segments[0], segments[1], nil
}

// tables lists a dataset's tables, failing NotFound for unknown datasets.
func (b *Backend) tables(ctx context.Context, h *handle, op, dataset string) ([]string, error) {
	datasets, err := h.dialect.datasets(ctx, h.db)
	if err != nil {
		return nil, classify(err, op, vfs.Join(vfs.Root, dataset))
	}

	if !slices.Contains(datasets, dataset) {
		return nil, errors.New(errors.KindNotFound, op, vfs.Join(vfs.Root, dataset), nil)
	}

	names, err := h.dialect.tables(ctx, h.db, dataset)
	if err != nil {
		return nil, classify(err, op, vfs.Join(vfs.Root, dataset))
	}

	return names, nil
}

func (b *Backend) open(ctx context.Context, profile vfs.Profile, op, p string) (*handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Classify(err, op, p)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.dbs[profile.ID]; ok {
		return h, nil
	}

	d, err := dialectFor(profile.Get(DriverKey, ""))
	if err != nil {
		return nil, errors.New(errors.KindValidation, op, p, err)
	}

	db, err := sql.Open(d.driverName(), profile.Get(DSNKey, ""))
	if err != nil {
		return nil, errors.New(errors.KindValidation, op, p, err)
	}

	if _, ok := d.(sqlite); ok {
		// In-memory databases exist per connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, errors.New(errors.KindUnavailable, "connect", profile.ID, err)
	}

	h := &handle{db: db, dialect: d}
	b.dbs[profile.ID] = h

	return h, nil
}

func namedItems(dir string, names []string, itemType vfs.ItemType) []vfs.Item {
	items := make([]vfs.Item, 0, len(names))
	for _, name := range names {
		items = append(items, vfs.NewItem(vfs.Join(dir, name), itemType, 0, time.Time{}))
	}

	vfs.SortItems(items)

	return items
}

func rowLimit(profile vfs.Profile) (int, error) {
	raw := profile.Get(RowLimitKey, "")
	if raw == "" {
		return DefaultRowLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid %s %q", RowLimitKey, raw) //nolint:err113 // validation with input
	}

	return limit, nil
}

func collect(rows *sql.Rows) (Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		return Rows{}, err //nolint:wrapcheck // classified by the caller
	}

	doc := Rows{Columns: columns, Rows: [][]any{}}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))

		for i := range values {
			ptrs[i] = &values[i]
		}

		if err := rows.Scan(ptrs...); err != nil {
			return Rows{}, err //nolint:wrapcheck // classified by the caller
		}

		for i, value := range values {
			if raw, ok := value.([]byte); ok {
				values[i] = string(raw)
			}
		}

		doc.Rows = append(doc.Rows, values)
	}

	return doc, rows.Err() //nolint:wrapcheck // classified by the caller
}

// classify maps PostgreSQL error classes, then falls back to message patterns.
func classify(err error, op, p string) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection, resources, operator intervention
			return errors.New(errors.KindUnavailable, op, p, err)
		case "42":
			if pqErr.Code == "42501" {
				return errors.New(errors.KindPermissionDenied, op, p, err)
			}

			if pqErr.Code == "42P01" {
				return errors.New(errors.KindNotFound, op, p, err)
			}
		case "3F":
			return errors.New(errors.KindNotFound, op, p, err)
		case "25":
			return errors.New(errors.KindReadOnly, op, p, err)
		}
	}

	return errors.Classify(err, op, p)
}
