package sqlitevec_test

import (
	"context"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/lorebookhq/lorebook/pkg/vector"
	"github.com/lorebookhq/lorebook/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	Describe("NewDriver", func() {
		It("returns an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("creates a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("errors when dimensions are not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
			}, logger)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Interface compliance", func() {
		It("implements vector.Driver", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Describe("Add", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("does nothing when given empty docs", func() {
			Expect(driver.Add(context.Background(), []vector.Document{})).To(Succeed())
		})

		It("adds a single document", func() {
			docs := []vector.Document{
				{
					ID:        "node-1",
					ProjectID: "proj-1",
					Embedding: []float32{0.1, 0.2, 0.3, 0.4},
				},
			}

			Expect(driver.Add(context.Background(), docs)).To(Succeed())

			retrieved, err := driver.Get(context.Background(), []string{"node-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved).To(HaveLen(1))
			Expect(retrieved[0].ID).To(Equal("node-1"))
			Expect(retrieved[0].ProjectID).To(Equal("proj-1"))
		})

		It("updates an existing document", func() {
			docs := []vector.Document{
				{ID: "node-1", ProjectID: "proj-1", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
			}
			Expect(driver.Add(context.Background(), docs)).To(Succeed())

			updated := []vector.Document{
				{ID: "node-1", ProjectID: "proj-2", Embedding: []float32{0.9, 0.9, 0.9, 0.9}},
			}
			Expect(driver.Add(context.Background(), updated)).To(Succeed())

			retrieved, err := driver.Get(context.Background(), []string{"node-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved).To(HaveLen(1))
			Expect(retrieved[0].ProjectID).To(Equal("proj-2"))
			Expect(retrieved[0].Embedding[0]).To(BeNumerically("~", 0.9, 0.001))
		})
	})

	Describe("Query", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			docs := []vector.Document{
				{ID: "node-1", ProjectID: "p", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
				{ID: "node-2", ProjectID: "p", Embedding: []float32{0.2, 0.2, 0.2, 0.2}},
				{ID: "node-3", ProjectID: "p", Embedding: []float32{0.3, 0.3, 0.3, 0.3}},
				{ID: "node-4", ProjectID: "p", Embedding: []float32{0.4, 0.4, 0.4, 0.4}},
				{ID: "node-5", ProjectID: "p", Embedding: []float32{0.5, 0.5, 0.5, 0.5}},
			}
			Expect(driver.Add(context.Background(), docs)).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("returns the closest documents first", func() {
			results, err := driver.Query(context.Background(), []float32{0.3, 0.3, 0.3, 0.3}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
			Expect(results[0].ID).To(Equal("node-3"))
		})

		It("respects the topK limit", func() {
			results, err := driver.Query(context.Background(), []float32{0.3, 0.3, 0.3, 0.3}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
		})

		It("defaults topK when zero", func() {
			results, err := driver.Query(context.Background(), []float32{0.3, 0.3, 0.3, 0.3}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))
		})

		It("returns scores in descending order", func() {
			results, err := driver.Query(context.Background(), []float32{0.3, 0.3, 0.3, 0.3}, 5)
			Expect(err).NotTo(HaveOccurred())
			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})
	})

	Describe("Delete", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())

			docs := []vector.Document{
				{ID: "node-1", ProjectID: "p", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
				{ID: "node-2", ProjectID: "p", Embedding: []float32{0.2, 0.2, 0.2, 0.2}},
				{ID: "node-3", ProjectID: "p", Embedding: []float32{0.3, 0.3, 0.3, 0.3}},
			}
			Expect(driver.Add(context.Background(), docs)).To(Succeed())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("does nothing when given empty IDs", func() {
			Expect(driver.Delete(context.Background(), []string{})).To(Succeed())
		})

		It("deletes documents and leaves the rest", func() {
			Expect(driver.Delete(context.Background(), []string{"node-1"})).To(Succeed())

			docs, err := driver.Get(context.Background(), []string{"node-1", "node-2", "node-3"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
		})

		It("does not error when deleting non-existent IDs", func() {
			Expect(driver.Delete(context.Background(), []string{"nonexistent"})).To(Succeed())
		})

		It("removes documents from query results after deletion", func() {
			Expect(driver.Delete(context.Background(), []string{"node-3"})).To(Succeed())

			results, err := driver.Query(context.Background(), []float32{0.3, 0.3, 0.3, 0.3}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			for _, result := range results {
				Expect(result.ID).NotTo(Equal("node-3"))
			}
		})
	})
})
