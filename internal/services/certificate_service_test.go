package services

import (
	"fmt"
	"sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/models"
)

func (suite *ServiceTestSuite) TestConcurrentIssueAllocatesDistinctNumbers() {
	producer, _ := suite.createProducer("Concurrent")
	const n = 8

	products := make([]*models.Product, n)
	for i := range products {
		products[i] = suite.createProduct(producer, fmt.Sprintf("Lot %d", i), models.ProductStatusEvaluated)
	}

	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)
	for i, product := range products {
		wg.Add(1)
		go func(i int, product *models.Product) {
			defer wg.Done()
			cert, err := suite.certificates.Issue(suite.ctx, suite.admin, &IssueCertificateRequest{
				ProductID:  product.ID,
				AwardLevel: "BRONZE",
			})
			errs[i] = err
			if err == nil {
				numbers[i] = cert.CertificateNumber
			}
		}(i, product)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range numbers {
		require.NoError(suite.T(), errs[i])
		assert.False(suite.T(), seen[numbers[i]], "duplicate number %s", numbers[i])
		seen[numbers[i]] = true
	}
	assert.Len(suite.T(), seen, n)
	assert.Equal(suite.T(), int64(n), suite.count(&models.Certificate{}, ""))

	var sequence models.CertificateSequence
	require.NoError(suite.T(), suite.db.First(&sequence, "year = ?", 2026).Error)
	assert.Equal(suite.T(), n, sequence.LastValue)
}

func (suite *ServiceTestSuite) TestIssueRetriesOnNumberCollision() {
	producer, _ := suite.createProducer("Collide")
	first := suite.createProduct(producer, "First", models.ProductStatusPending)
	existing := suite.certify(first, models.AwardGold, true)
	require.Equal(suite.T(), "TC-2026-000001", existing.CertificateNumber)

	allocator := &scriptedAllocator{numbers: []string{"TC-2026-000001", "TC-2026-000002"}}
	certificates := suite.certificateService(allocator)
	second := suite.createProduct(producer, "Second", models.ProductStatusEvaluated)

	cert, err := certificates.Issue(suite.ctx, suite.admin, &IssueCertificateRequest{
		ProductID:  second.ID,
		AwardLevel: "SILVER",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "TC-2026-000002", cert.CertificateNumber)
	assert.Equal(suite.T(), 2, allocator.calls)
	assert.Equal(suite.T(), models.ProductStatusCertified, suite.reloadProduct(second.ID).Status)
}

func (suite *ServiceTestSuite) TestIssueGivesUpAfterRetries() {
	suite.cfg.Certification.AllocateRetries = 2

	producer, _ := suite.createProducer("Unlucky")
	first := suite.createProduct(producer, "First", models.ProductStatusPending)
	suite.certify(first, models.AwardGold, true)

	allocator := &scriptedAllocator{numbers: []string{"TC-2026-000001", "TC-2026-000001", "TC-2026-000003"}}
	certificates := suite.certificateService(allocator)
	second := suite.createProduct(producer, "Second", models.ProductStatusEvaluated)

	_, err := certificates.Issue(suite.ctx, suite.admin, &IssueCertificateRequest{
		ProductID:  second.ID,
		AwardLevel: "SILVER",
	})
	require.Error(suite.T(), err)
	assert.ErrorIs(suite.T(), err, gorm.ErrDuplicatedKey)
	assert.Equal(suite.T(), 2, allocator.calls)
	assert.Equal(suite.T(), models.ProductStatusEvaluated, suite.reloadProduct(second.ID).Status)
	assert.Equal(suite.T(), int64(0), suite.count(&models.Certificate{}, "product_id = ?", second.ID))
}

func (suite *ServiceTestSuite) TestIssueRequiresEvaluatedProductAndAward() {
	producer, _ := suite.createProducer("Early")
	product := suite.createProduct(producer, "Too Soon", models.ProductStatusPending)

	_, err := suite.certificates.Issue(suite.ctx, suite.admin, &IssueCertificateRequest{ProductID: product.ID, AwardLevel: "GOLD"})
	assert.ErrorIs(suite.T(), err, ErrConflict)

	_, err = suite.certificates.Issue(suite.ctx, suite.admin, &IssueCertificateRequest{ProductID: product.ID, AwardLevel: "NONE"})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.certificates.Issue(suite.ctx, suite.admin, &IssueCertificateRequest{ProductID: product.ID, AwardLevel: "Platinum"})
	assert.ErrorIs(suite.T(), err, ErrValidation)
}

func (suite *ServiceTestSuite) TestReissueKeepsCertificateNumber() {
	producer, _ := suite.createProducer("Again")
	product := suite.createProduct(producer, "Vintage", models.ProductStatusPending)
	original := suite.certify(product, models.AwardBronze, false)

	// A certificate left over from an earlier round on an EVALUATED product
	require.NoError(suite.T(), suite.db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("status", models.ProductStatusEvaluated).Error)

	cert, err := suite.certificates.Issue(suite.ctx, suite.admin, &IssueCertificateRequest{
		ProductID:  product.ID,
		AwardLevel: "Gold Award",
	})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), original.ID, cert.ID)
	assert.Equal(suite.T(), original.CertificateNumber, cert.CertificateNumber)
	assert.Equal(suite.T(), models.AwardGold, cert.AwardLevel)
	assert.True(suite.T(), cert.IsPublished)
	assert.Equal(suite.T(), int64(1), suite.count(&models.Certificate{}, ""))
}

func (suite *ServiceTestSuite) TestUnpublishKeepsCertificateVerifiable() {
	producer, _ := suite.createProducer("Hidden")
	product := suite.createProduct(producer, "Quiet Gold", models.ProductStatusPending)
	cert := suite.certify(product, models.AwardGold, true)

	published := false
	updated, err := suite.certificates.Update(suite.ctx, suite.admin, cert.ID, &UpdateCertificateRequest{IsPublished: &published})
	require.NoError(suite.T(), err)
	assert.False(suite.T(), updated.IsPublished)
	assert.Equal(suite.T(), int64(1), suite.count(&models.Certificate{}, "id = ?", cert.ID))

	winners, total, err := suite.directory.ListWinners(suite.ctx, Anonymous, WinnerFilter{PaginationParams: defaultPage()})
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), total)
	assert.Empty(suite.T(), winners)

	result, err := suite.certificates.Verify(suite.ctx, cert.CertificateNumber)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), result.Valid)
	require.NotNil(suite.T(), result.Certificate)
	assert.Equal(suite.T(), "Quiet Gold", result.Certificate.ProductName)
	assert.False(suite.T(), result.Certificate.IsPublished)
}

func (suite *ServiceTestSuite) TestUpdateRejectsNoneAward() {
	producer, _ := suite.createProducer("Downgrade")
	product := suite.createProduct(producer, "Cheese", models.ProductStatusPending)
	cert := suite.certify(product, models.AwardGold, true)

	none := "No Award"
	_, err := suite.certificates.Update(suite.ctx, suite.admin, cert.ID, &UpdateCertificateRequest{AwardLevel: &none})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = suite.certificates.Update(suite.ctx, suite.admin, cert.ID, &UpdateCertificateRequest{})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	silver := "silver"
	updated, err := suite.certificates.Update(suite.ctx, suite.admin, cert.ID, &UpdateCertificateRequest{AwardLevel: &silver})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.AwardSilver, updated.AwardLevel)
}

func (suite *ServiceTestSuite) TestDeleteCertificateNeedsConfirmation() {
	producer, _ := suite.createProducer("Withdrawn")
	product := suite.createProduct(producer, "Recall", models.ProductStatusPending)
	cert := suite.certify(product, models.AwardSilver, true)

	err := suite.certificates.Delete(suite.ctx, suite.admin, cert.ID, "yes")
	assert.ErrorIs(suite.T(), err, ErrConfirmationRequired)
	assert.Equal(suite.T(), int64(1), suite.count(&models.Certificate{}, ""))

	require.NoError(suite.T(), suite.certificates.Delete(suite.ctx, suite.admin, cert.ID, cert.CertificateNumber))
	assert.Equal(suite.T(), int64(0), suite.count(&models.Certificate{}, ""))
	assert.Equal(suite.T(), models.ProductStatusEvaluated, suite.reloadProduct(product.ID).Status)
	assert.Equal(suite.T(), int64(1), suite.count(&models.Evaluation{}, "product_id = ?", product.ID))

	result, err := suite.certificates.Verify(suite.ctx, cert.CertificateNumber)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), result.Valid)
}

func (suite *ServiceTestSuite) TestVerifyUnknownNumber() {
	result, err := suite.certificates.Verify(suite.ctx, " tc-2026-999999 ")
	require.NoError(suite.T(), err)
	assert.False(suite.T(), result.Valid)
	assert.Equal(suite.T(), "TC-2026-999999", result.CertificateNumber)
	assert.Nil(suite.T(), result.Certificate)

	_, err = suite.certificates.Verify(suite.ctx, "  ")
	assert.ErrorIs(suite.T(), err, ErrValidation)
}

func (suite *ServiceTestSuite) TestGetCertificateScopedToOwner() {
	owner, ownerActor := suite.createProducer("Mine")
	_, otherActor := suite.createProducer("Theirs")
	product := suite.createProduct(owner, "Gin", models.ProductStatusPending)
	cert := suite.certify(product, models.AwardGold, true)

	got, err := suite.certificates.GetCertificate(suite.ctx, ownerActor, cert.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), cert.CertificateNumber, got.CertificateNumber)

	_, err = suite.certificates.GetCertificate(suite.ctx, otherActor, cert.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}
