package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dcastano/reciboscan/constants"
	"github.com/dcastano/reciboscan/internal/common"
	"github.com/dcastano/reciboscan/internal/entity"
)

func TestRepository(t *testing.T) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	RegisterFailHandler(Fail)
	RunSpecs(t, "Repository Suite")
}

func sampleTemplate(merchantID string) *entity.StoreParsingTemplate {
	return &entity.StoreParsingTemplate{
		MerchantID: merchantID,
		StoreName:  "Panaderia Lopez",
		Zones: entity.ZoneSet{
			constants.ZoneTotal: {
				Type: constants.ZoneTotal,
				Box:  entity.NormalizedBox{X: 0.1, Y: 0.8, Width: 0.8, Height: 0.05},
			},
		},
		Hints:       entity.ParsingHints{DecimalSeparator: ",", DayFirst: true},
		ImageWidth:  1000,
		ImageHeight: 1600,
		Confidence:  70,
	}
}

// describeRepository runs the contract shared by every implementation.
func describeRepository(name string, factory func() TemplateRepository) bool {
	return Describe(name, func() {
		var (
			repo TemplateRepository
			ctx  context.Context
		)

		BeforeEach(func() {
			repo = factory()
			ctx = context.Background()
		})

		Describe("GetByMerchantID", func() {
			It("round-trips an upserted template", func() {
				Expect(repo.Upsert(ctx, sampleTemplate("panaderia-lopez"))).To(Succeed())

				got, err := repo.GetByMerchantID(ctx, "panaderia-lopez")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.StoreName).To(Equal("Panaderia Lopez"))
				Expect(got.Hints.DayFirst).To(BeTrue())
				zone, ok := got.Zones.Get(constants.ZoneTotal)
				Expect(ok).To(BeTrue())
				Expect(zone.Box.Y).To(BeNumerically("~", 0.8))
			})

			It("reports a missing merchant as not found", func() {
				_, err := repo.GetByMerchantID(ctx, "nope")
				Expect(errors.Is(err, common.ErrNotFound)).To(BeTrue())
			})
		})

		Describe("Upsert", func() {
			It("preserves counters when the template is replaced", func() {
				Expect(repo.Upsert(ctx, sampleTemplate("m1"))).To(Succeed())
				Expect(repo.RecordUse(ctx, "m1")).To(Succeed())
				Expect(repo.RecordOutcome(ctx, "m1", OutcomeGeneric, true)).To(Succeed())

				replacement := sampleTemplate("m1")
				replacement.StoreName = "Renamed"
				Expect(repo.Upsert(ctx, replacement)).To(Succeed())

				got, err := repo.GetByMerchantID(ctx, "m1")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.StoreName).To(Equal("Renamed"))
				Expect(got.UseCount).To(Equal(1))
				Expect(got.SuccessCount).To(Equal(1))
			})
		})

		Describe("RecordOutcome", func() {
			It("drifts confidence up on success and down on failure", func() {
				Expect(repo.Upsert(ctx, sampleTemplate("m1"))).To(Succeed())

				Expect(repo.RecordOutcome(ctx, "m1", OutcomeChain, true)).To(Succeed())
				got, _ := repo.GetByMerchantID(ctx, "m1")
				Expect(got.Confidence).To(Equal(72))

				Expect(repo.RecordOutcome(ctx, "m1", OutcomeChain, false)).To(Succeed())
				got, _ = repo.GetByMerchantID(ctx, "m1")
				Expect(got.Confidence).To(Equal(67))
				Expect(got.SuccessCount).To(Equal(1))
				Expect(got.FailureCount).To(Equal(1))
			})

			It("clamps confidence to the unit interval", func() {
				t := sampleTemplate("m1")
				t.Confidence = 99
				Expect(repo.Upsert(ctx, t)).To(Succeed())
				Expect(repo.RecordOutcome(ctx, "m1", OutcomeChain, true)).To(Succeed())

				got, _ := repo.GetByMerchantID(ctx, "m1")
				Expect(got.Confidence).To(Equal(100))

				for i := 0; i < 25; i++ {
					Expect(repo.RecordOutcome(ctx, "m1", OutcomeChain, false)).To(Succeed())
				}
				got, _ = repo.GetByMerchantID(ctx, "m1")
				Expect(got.Confidence).To(BeZero())
			})

			It("fails for an unknown merchant", func() {
				err := repo.RecordOutcome(ctx, "nope", OutcomeChain, true)
				Expect(errors.Is(err, common.ErrNotFound)).To(BeTrue())
			})
		})

		Describe("ListWithFingerprints", func() {
			It("returns only templates carrying a fingerprint", func() {
				withFP := sampleTemplate("with-fp")
				withFP.Fingerprint = &entity.StoreFingerprint{Layout: constants.LayoutInline}
				Expect(repo.Upsert(ctx, withFP)).To(Succeed())
				Expect(repo.Upsert(ctx, sampleTemplate("without-fp"))).To(Succeed())

				list, err := repo.ListWithFingerprints(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(HaveLen(1))
				Expect(list[0].MerchantID).To(Equal("with-fp"))
			})
		})
	})
}

var _ = describeRepository("memoryRepository", NewMemoryRepository)

var _ = describeRepository("boltRepository", func() TemplateRepository {
	repo, err := NewBoltRepository(filepath.Join(GinkgoT().TempDir(), "templates.db"), nil)
	Expect(err).NotTo(HaveOccurred())
	return repo
})
