package migrate

import (
	"context"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSplitStatementsKeepsQuotedSemicolons(t *testing.T) {
	stmts := splitStatements(`
-- leading; comment
create table a (note text default 'x;y');
insert into a values ('it''s');
select 1`)
	require.Len(t, stmts, 3)
	require.Contains(t, stmts[0], "'x;y'")
	require.Contains(t, stmts[1], "'it''s'")
	require.Equal(t, "select 1", strings.TrimSpace(stmts[2]))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	m := NewManager(nil)
	ups, err := m.collect(".up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(m.fsys, m.dir+"/"+down)
		require.NoError(t, err, "missing %s", down)
	}
	require.Equal(t, "0001_identity.up.sql", ups[0])
}

func TestUpAppliesPendingInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"m/0001_a.up.sql":   {Data: []byte("create table a (id int);")},
		"m/0001_a.down.sql": {Data: []byte("drop table a;")},
		"m/0002_b.up.sql":   {Data: []byte("create table b (id int); create index b_idx on b(id);")},
	}
	m := NewManager(db, WithFS(fsys, "m"), WithMigrationsTable("mig"))

	mock.ExpectExec("create table if not exists mig").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("select pg_advisory_lock").WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from mig").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0001_a.up.sql"))
	mock.ExpectBegin()
	mock.ExpectExec("create table b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create index b_idx").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into mig").WithArgs("0002_b.up.sql", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("select pg_advisory_unlock").WithArgs(lockKey).WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := m.Up(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"0002_b.up.sql"}, applied)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDownRequiresPairedFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{"m/0002_b.up.sql": {Data: []byte("select 1;")}}
	m := NewManager(db, WithFS(fsys, "m"))

	mock.ExpectExec("create table if not exists schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select name from schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("0002_b.up.sql"))

	_, err = m.Down(context.Background())
	require.ErrorContains(t, err, "missing down migration")
}
