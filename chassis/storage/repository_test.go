package storage_test

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/freundallein/todo/backend/chassis/storage"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// behavesLikeRepository runs the shared contract against any backend.
func behavesLikeRepository(newRepo func() storage.TodoRepository) {
	var (
		ctx  context.Context
		repo storage.TodoRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newRepo()
	})

	AfterEach(func() {
		Expect(repo.Close()).To(Succeed())
	})

	It("starts empty", func() {
		todos, err := repo.List(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(todos).ToNot(BeNil())
		Expect(todos).To(BeEmpty())
	})

	It("lists items in insertion order", func() {
		first := storage.NewTodo(storage.TodoCreate{Title: "first"})
		second := storage.NewTodo(storage.TodoCreate{Title: "second", Description: strPtr("desc")})
		third := storage.NewTodo(storage.TodoCreate{Title: "third", Completed: true})
		for _, todo := range []storage.Todo{first, second, third} {
			Expect(repo.Create(ctx, todo)).To(Succeed())
		}

		todos, err := repo.List(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(todos).To(Equal([]storage.Todo{first, second, third}))
	})

	It("gets an item by id", func() {
		todo := storage.NewTodo(storage.TodoCreate{Title: "buy milk"})
		Expect(repo.Create(ctx, todo)).To(Succeed())

		found, err := repo.Get(ctx, todo.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(*found).To(Equal(todo))

		_, err = repo.Get(ctx, uuid.New())
		Expect(err).To(MatchError(storage.ErrNotFound))
	})

	It("rejects duplicated ids", func() {
		todo := storage.NewTodo(storage.TodoCreate{Title: "once"})
		Expect(repo.Create(ctx, todo)).To(Succeed())
		Expect(repo.Create(ctx, todo)).To(MatchError(storage.ErrDuplicate))
	})

	It("applies only the fields present in the update", func() {
		todo := storage.NewTodo(storage.TodoCreate{Title: "draft", Description: strPtr("keep me")})
		Expect(repo.Create(ctx, todo)).To(Succeed())

		updated, err := repo.Update(ctx, todo.ID, storage.TodoUpdate{Completed: boolPtr(true)})
		Expect(err).ToNot(HaveOccurred())
		Expect(updated.Title).To(Equal("draft"))
		Expect(updated.Description).To(Equal(strPtr("keep me")))
		Expect(updated.Completed).To(BeTrue())

		updated, err = repo.Update(ctx, todo.ID, storage.TodoUpdate{Title: strPtr("final"), DescriptionSet: true})
		Expect(err).ToNot(HaveOccurred())
		Expect(updated.Title).To(Equal("final"))
		Expect(updated.Description).To(BeNil())
		Expect(updated.Completed).To(BeTrue())

		found, err := repo.Get(ctx, todo.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(found).To(Equal(updated))
	})

	It("keeps the position of updated items", func() {
		first := storage.NewTodo(storage.TodoCreate{Title: "first"})
		second := storage.NewTodo(storage.TodoCreate{Title: "second"})
		Expect(repo.Create(ctx, first)).To(Succeed())
		Expect(repo.Create(ctx, second)).To(Succeed())

		_, err := repo.Update(ctx, first.ID, storage.TodoUpdate{Title: strPtr("renamed")})
		Expect(err).ToNot(HaveOccurred())

		todos, err := repo.List(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(todos).To(HaveLen(2))
		Expect(todos[0].Title).To(Equal("renamed"))
		Expect(todos[1].ID).To(Equal(second.ID))
	})

	It("returns ErrNotFound when updating a missing item", func() {
		_, err := repo.Update(ctx, uuid.New(), storage.TodoUpdate{Title: strPtr("x")})
		Expect(err).To(MatchError(storage.ErrNotFound))
	})

	It("deletes items", func() {
		todo := storage.NewTodo(storage.TodoCreate{Title: "gone soon"})
		Expect(repo.Create(ctx, todo)).To(Succeed())

		Expect(repo.Delete(ctx, todo.ID)).To(Succeed())
		Expect(repo.Delete(ctx, todo.ID)).To(MatchError(storage.ErrNotFound))

		todos, err := repo.List(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(todos).To(BeEmpty())
	})

	It("serializes concurrent creates", func() {
		var group sync.WaitGroup
		for i := 0; i < 20; i++ {
			group.Add(1)
			go func() {
				defer GinkgoRecover()
				defer group.Done()
				Expect(repo.Create(ctx, storage.NewTodo(storage.TodoCreate{Title: "parallel"}))).To(Succeed())
			}()
		}
		group.Wait()

		todos, err := repo.List(ctx)
		Expect(err).ToNot(HaveOccurred())
		Expect(todos).To(HaveLen(20))
	})

	It("answers pings", func() {
		Expect(repo.Ping(ctx)).To(Succeed())
	})
}

var _ = Describe("MemRepository", func() {
	behavesLikeRepository(func() storage.TodoRepository {
		repo, err := storage.NewMemRepository()
		Expect(err).ToNot(HaveOccurred())
		return repo
	})
})

var _ = Describe("FileRepository", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = ioutil.TempDir("", "todo-storage")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	Describe("contract", func() {
		behavesLikeRepository(func() storage.TodoRepository {
			return storage.NewFileRepository(filepath.Join(dir, "db.json"))
		})
	})

	It("reads a corrupted file as empty", func() {
		path := filepath.Join(dir, "db.json")
		Expect(ioutil.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

		todos, err := storage.NewFileRepository(path).List(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(todos).To(BeEmpty())
	})

	It("writes an indented json array", func() {
		path := filepath.Join(dir, "db.json")
		repo := storage.NewFileRepository(path)
		id := uuid.MustParse("3fa85f64-5717-4562-b3fc-2c963f66afa6")
		Expect(repo.Create(context.Background(), storage.Todo{ID: id, Title: "write docs"})).To(Succeed())

		data, err := ioutil.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal(`[
    {
        "id": "3fa85f64-5717-4562-b3fc-2c963f66afa6",
        "title": "write docs",
        "description": null,
        "completed": false
    }
]`))
	})

	It("leaves an empty array after deleting the last item", func() {
		path := filepath.Join(dir, "db.json")
		repo := storage.NewFileRepository(path)
		todo := storage.NewTodo(storage.TodoCreate{Title: "only"})
		Expect(repo.Create(context.Background(), todo)).To(Succeed())
		Expect(repo.Delete(context.Background(), todo.ID)).To(Succeed())

		data, err := ioutil.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("[]"))
	})
})

var _ = Describe("Open", func() {
	It("builds the configured backend", func() {
		repo, err := storage.Open(context.Background(), storage.Config{Driver: "memory"})
		Expect(err).ToNot(HaveOccurred())
		Expect(repo).To(BeAssignableToTypeOf(&storage.MemRepository{}))

		repo, err = storage.Open(context.Background(), storage.Config{Driver: "file", Path: "db.json"})
		Expect(err).ToNot(HaveOccurred())
		Expect(repo).To(BeAssignableToTypeOf(&storage.FileRepository{}))
	})

	It("rejects unknown drivers", func() {
		_, err := storage.Open(context.Background(), storage.Config{Driver: "mongo"})
		Expect(err).To(MatchError(ContainSubstring("unknown storage driver")))
	})
})
