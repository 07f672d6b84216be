package services

import (
	"strings"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/tastecert-backend/internal/models"
)

func (suite *ServiceTestSuite) TestQRCodeCreatedOnceAndScanned() {
	qr := NewQRService(suite.db, suite.cfg, suite.clock, suite.collector)
	producer, owner := suite.createProducer("Scanner")
	product := suite.createProduct(producer, "Craft Lager", models.ProductStatusPending)
	cert := suite.certify(product, models.AwardSilver, true)

	view, err := qr.GetOrCreate(suite.ctx, owner, product.ID)
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), view.Code)
	assert.Equal(suite.T(), "https://api.tastecert.test/v1/qr/"+view.Code, view.ScanURL)
	assert.Equal(suite.T(), "https://tastecert.test/verify/"+cert.CertificateNumber, view.TargetURL)
	assert.True(suite.T(), strings.HasPrefix(view.ImageURL, suite.cfg.Collaborators.QRImageBaseURL))

	again, err := qr.GetOrCreate(suite.ctx, suite.admin, product.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), view.Code, again.Code)
	assert.Equal(suite.T(), int64(1), suite.count(&models.QRCode{}, ""))

	suite.clock.Advance(time.Hour)
	for i := 0; i < 3; i++ {
		target, err := qr.Scan(suite.ctx, view.Code)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), view.TargetURL, target)
	}

	var stored models.QRCode
	require.NoError(suite.T(), suite.db.First(&stored, "code = ?", view.Code).Error)
	assert.Equal(suite.T(), int64(3), stored.ScanCount)
	require.NotNil(suite.T(), stored.LastScanAt)
	assert.True(suite.T(), stored.LastScanAt.Equal(suite.clock.Now()))

	_, err = qr.Scan(suite.ctx, "does-not-exist")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestQRCodeNeedsCertificateAndOwnership() {
	qr := NewQRService(suite.db, suite.cfg, suite.clock, suite.collector)
	producer, owner := suite.createProducer("Owner")
	_, stranger := suite.createProducer("Stranger")

	pending := suite.createProduct(producer, "Unfinished", models.ProductStatusPending)
	_, err := qr.GetOrCreate(suite.ctx, owner, pending.ID)
	assert.ErrorIs(suite.T(), err, ErrConflict)

	certified := suite.createProduct(producer, "Finished", models.ProductStatusPending)
	suite.certify(certified, models.AwardBronze, true)

	_, err = qr.GetOrCreate(suite.ctx, stranger, certified.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = qr.GetOrCreate(suite.ctx, Anonymous, certified.ID)
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)
	assert.Equal(suite.T(), int64(0), suite.count(&models.QRCode{}, ""))
}
