package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photoapi/internal/jsondoc"
	"photoapi/internal/model"
	"photoapi/internal/repository"
)

var photoRowColumns = []string{"id", "title", "image", "metadata", "created_at", "updated_at"}

func TestPhotoPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPhotoPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	p := &model.Photo{ID: "test-uuid", Title: "sunset", CreatedAt: now, UpdatedAt: now}
	p.SetMetadata(jsondoc.Document{"camera": "x100"})

	mock.ExpectExec("INSERT INTO photos").
		WithArgs(p.ID, p.Title, nil, `{"camera":"x100"}`, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Create(ctx, p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoPostgres_UpdateSavesInPlaceEdits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPhotoPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	p := &model.Photo{ID: "test-id", Title: "t", UpdatedAt: now}
	require.NoError(t, p.ImageAttr().Scan(`{"original":"a.jpg"}`))
	p.Image()["original"] = "b.jpg"

	t.Run("updated", func(t *testing.T) {
		mock.ExpectExec("UPDATE photos").
			WithArgs("test-id", "t", `{"original":"b.jpg"}`, nil, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(ctx, p))
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE photos").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Update(ctx, p), repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPhotoPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(photoRowColumns).
			AddRow("test-id", "sunset", `{"original":"photos/a.jpg"}`, nil, time.Now(), time.Now())

		mock.ExpectQuery("SELECT (.+) FROM photos WHERE id = ?").
			WithArgs("test-id").
			WillReturnRows(rows)

		p, err := repo.FindByID(ctx, "test-id")

		require.NoError(t, err)
		assert.Equal(t, "test-id", p.ID)
		assert.Equal(t, "photos/a.jpg", p.Image()["original"])
		assert.Nil(t, p.Metadata())
	})

	t.Run("malformed document is kept raw", func(t *testing.T) {
		rows := sqlmock.NewRows(photoRowColumns).
			AddRow("bad-id", "x", []byte(`{"original":`), nil, time.Now(), time.Now())

		mock.ExpectQuery("SELECT (.+) FROM photos WHERE id = ?").
			WithArgs("bad-id").
			WillReturnRows(rows)

		p, err := repo.FindByID(ctx, "bad-id")

		require.NoError(t, err)
		assert.Nil(t, p.Image())
		assert.Equal(t, `{"original":`, p.ImageAttr().String())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM photos WHERE id = ?").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(photoRowColumns))

		p, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, p)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM photos WHERE id = ?").
			WithArgs("boom").
			WillReturnError(errors.New("connection reset"))

		_, err := repo.FindByID(ctx, "boom")
		assert.EqualError(t, err, "connection reset")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPhotoPostgres(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM photos").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	rows := sqlmock.NewRows(photoRowColumns).
		AddRow("a", "first", nil, `{"tags":["x"]}`, time.Now(), time.Now()).
		AddRow("b", "second", `{"original":"b.jpg"}`, nil, time.Now(), time.Now())

	mock.ExpectQuery("SELECT (.+) FROM photos ORDER BY").
		WithArgs(10, 0).
		WillReturnRows(rows)

	res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, []any{"x"}, res.Items[0].Metadata()["tags"])
	assert.Equal(t, "b.jpg", res.Items[1].Image()["original"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhotoPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewPhotoPostgres(db)

	mock.ExpectExec("DELETE FROM photos WHERE id = ?").
		WithArgs("test-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "test-id"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
