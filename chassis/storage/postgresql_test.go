package storage_test

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/freundallein/todo/backend/chassis/storage"
)

var _ = Describe("PGRepository", func() {
	var (
		ctx        context.Context
		mock       pgxmock.PgxPoolIface
		repository *storage.PGRepository
		id         uuid.UUID
		columns    = []string{"id", "title", "description", "completed"}
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		mock, err = pgxmock.NewPool()
		Expect(err).ToNot(HaveOccurred())
		repository = storage.NewPGRepository(mock)
		id = uuid.MustParse("8d3ab1f4-7b35-4b3a-9f1e-6a4f0a0e2c11")
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	Describe("List", func() {
		It("returns rows ordered by insertion", func() {
			desc := "with description"
			rows := pgxmock.NewRows(columns).
				AddRow(id.String(), "first", &desc, false).
				AddRow("c0a80121-7ac0-4e1c-8a9b-2c3d4e5f6a7b", "second", &desc, true)
			mock.ExpectQuery(`select id, title, description, completed from t_todo order by seq`).
				WillReturnRows(rows)

			todos, err := repository.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(todos).To(HaveLen(2))
			Expect(todos[0].ID).To(Equal(id))
			Expect(todos[0].Title).To(Equal("first"))
			Expect(*todos[0].Description).To(Equal(desc))
			Expect(todos[1].Completed).To(BeTrue())
		})

		It("returns an empty slice for an empty table", func() {
			mock.ExpectQuery(`select .* from t_todo`).WillReturnRows(pgxmock.NewRows(columns))

			todos, err := repository.List(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(todos).ToNot(BeNil())
			Expect(todos).To(BeEmpty())
		})
	})

	Describe("Get", func() {
		It("maps no rows to ErrNotFound", func() {
			mock.ExpectQuery(`select .* from t_todo where id = \$1`).
				WithArgs(id.String()).
				WillReturnError(pgx.ErrNoRows)

			_, err := repository.Get(ctx, id)
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("returns the row", func() {
			desc := "d"
			mock.ExpectQuery(`select .* from t_todo where id = \$1`).
				WithArgs(id.String()).
				WillReturnRows(pgxmock.NewRows(columns).AddRow(id.String(), "title", &desc, true))

			todo, err := repository.Get(ctx, id)
			Expect(err).ToNot(HaveOccurred())
			Expect(todo.ID).To(Equal(id))
			Expect(todo.Completed).To(BeTrue())
		})
	})

	Describe("Create", func() {
		It("inserts the item", func() {
			mock.ExpectExec(`insert into t_todo`).
				WithArgs(id.String(), "title", pgxmock.AnyArg(), false).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))

			Expect(repository.Create(ctx, storage.Todo{ID: id, Title: "title"})).To(Succeed())
		})

		It("maps unique violations to ErrDuplicate", func() {
			mock.ExpectExec(`insert into t_todo`).
				WithArgs(id.String(), "title", pgxmock.AnyArg(), false).
				WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

			err := repository.Create(ctx, storage.Todo{ID: id, Title: "title"})
			Expect(err).To(MatchError(storage.ErrDuplicate))
		})

		It("passes other errors through", func() {
			mock.ExpectExec(`insert into t_todo`).
				WithArgs(id.String(), "title", pgxmock.AnyArg(), false).
				WillReturnError(errors.New("connection reset"))

			err := repository.Create(ctx, storage.Todo{ID: id, Title: "title"})
			Expect(err).To(MatchError("connection reset"))
		})
	})

	Describe("Update", func() {
		It("returns the updated row", func() {
			title := "renamed"
			desc := "kept"
			mock.ExpectQuery(`update t_todo`).
				WithArgs(id.String(), pgxmock.AnyArg(), false, pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnRows(pgxmock.NewRows(columns).AddRow(id.String(), title, &desc, false))

			todo, err := repository.Update(ctx, id, storage.TodoUpdate{Title: &title})
			Expect(err).ToNot(HaveOccurred())
			Expect(todo.Title).To(Equal(title))
		})

		It("maps no rows to ErrNotFound", func() {
			mock.ExpectQuery(`update t_todo`).
				WithArgs(id.String(), pgxmock.AnyArg(), true, pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnError(pgx.ErrNoRows)

			_, err := repository.Update(ctx, id, storage.TodoUpdate{DescriptionSet: true})
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("Delete", func() {
		It("deletes an existing row", func() {
			mock.ExpectExec(`delete from t_todo where id = \$1`).
				WithArgs(id.String()).
				WillReturnResult(pgxmock.NewResult("DELETE", 1))

			Expect(repository.Delete(ctx, id)).To(Succeed())
		})

		It("maps zero affected rows to ErrNotFound", func() {
			mock.ExpectExec(`delete from t_todo where id = \$1`).
				WithArgs(id.String()).
				WillReturnResult(pgxmock.NewResult("DELETE", 0))

			Expect(repository.Delete(ctx, id)).To(MatchError(storage.ErrNotFound))
		})
	})

	It("closes the pool", func() {
		mock.ExpectClose()
		Expect(repository.Close()).To(Succeed())
	})
})

var _ = Describe("MigrateDSN", func() {
	It("switches to the pgx scheme", func() {
		Expect(storage.MigrateDSN("postgres://u:p@db:5432/todo")).
			To(Equal("pgx://u:p@db:5432/todo?x-migrations-table=schema_migrations"))
		Expect(storage.MigrateDSN("postgresql://u:p@db/todo?sslmode=disable")).
			To(Equal("pgx://u:p@db/todo?sslmode=disable&x-migrations-table=schema_migrations"))
	})
})
