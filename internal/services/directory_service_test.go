package services

import (
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/tastecert-backend/internal/models"
)

func (suite *ServiceTestSuite) winnerNames(actor Actor, filter WinnerFilter) []string {
	if filter.Limit == 0 {
		filter.PaginationParams = defaultPage()
	}
	winners, total, err := suite.directory.ListWinners(suite.ctx, actor, filter)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(len(winners)), total)

	names := make([]string, 0, len(winners))
	for _, w := range winners {
		names = append(names, w.ProductName)
	}
	return names
}

func (suite *ServiceTestSuite) TestListWinnersFilters() {
	wine := &models.Category{Name: "Wine", Slug: "wine"}
	require.NoError(suite.T(), suite.db.Create(wine).Error)

	producer, _ := suite.createProducer("Quinta do Vale")
	other, _ := suite.createProducer("Hill Creamery")

	suite.clock.Set(time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC))
	old := suite.createProduct(producer, "Reserva 2019", models.ProductStatusPending)
	suite.certify(old, models.AwardSilver, true)

	suite.clock.Set(time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC))
	red := suite.createProduct(producer, "Tinto Grande", models.ProductStatusPending)
	require.NoError(suite.T(), suite.db.Model(red).Update("category_id", wine.ID).Error)
	suite.certify(red, models.AwardGold, true)

	cheese := suite.createProduct(other, "Aged Cheddar", models.ProductStatusPending)
	suite.certify(cheese, models.AwardGold, true)

	draft := suite.createProduct(other, "Blue Test", models.ProductStatusPending)
	suite.certify(draft, models.AwardBronze, false)

	assert.ElementsMatch(suite.T(), []string{"Reserva 2019", "Tinto Grande", "Aged Cheddar"}, suite.winnerNames(Anonymous, WinnerFilter{}))

	gold := models.AwardGold
	assert.ElementsMatch(suite.T(), []string{"Tinto Grande", "Aged Cheddar"}, suite.winnerNames(Anonymous, WinnerFilter{AwardLevel: &gold}))

	year := 2025
	assert.Equal(suite.T(), []string{"Reserva 2019"}, suite.winnerNames(Anonymous, WinnerFilter{Year: &year}))

	assert.Equal(suite.T(), []string{"Tinto Grande"}, suite.winnerNames(Anonymous, WinnerFilter{CategoryID: &wine.ID}))

	params := defaultPage()
	params.Search = "creamery"
	assert.Equal(suite.T(), []string{"Aged Cheddar"}, suite.winnerNames(Anonymous, WinnerFilter{PaginationParams: params}))

	unpublished := false
	assert.Empty(suite.T(), suite.winnerNames(Anonymous, WinnerFilter{Published: &unpublished}))
	assert.Equal(suite.T(), []string{"Blue Test"}, suite.winnerNames(suite.admin, WinnerFilter{Published: &unpublished}))
	assert.Len(suite.T(), suite.winnerNames(suite.admin, WinnerFilter{}), 4)
}

func (suite *ServiceTestSuite) TestWinnerViewCarriesLabelAndScore() {
	producer, _ := suite.createProducer("Label Check")
	product := suite.createProduct(producer, "Olive Oil", models.ProductStatusPending)
	cert := suite.certify(product, models.AwardGold, true)

	view, err := suite.directory.FindByNumber(suite.ctx, cert.CertificateNumber)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Gold Award", view.AwardLabel)
	assert.InDelta(suite.T(), 8.0, view.Score, 0.001)
	assert.Equal(suite.T(), 2026, view.Year)
	assert.Equal(suite.T(), "Label Check", view.ProducerName)
	assert.Equal(suite.T(), "Label Check Ltd", view.Company)

	_, err = suite.directory.FindByNumber(suite.ctx, "TC-1999-000001")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestDashboardStats() {
	producer, actor := suite.createProducer("Stats")
	suite.createAccount(models.RoleProducer, models.AccountStatusPending, "Waiting")

	suite.createProduct(producer, "Queued", models.ProductStatusPending)
	suite.createProduct(producer, "Turned Down", models.ProductStatusRejected)
	certified := suite.createProduct(producer, "Winner", models.ProductStatusPending)
	suite.certify(certified, models.AwardGold, false)

	stats, err := suite.directory.DashboardStats(suite.ctx, suite.admin)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), stats.ProductsByStatus[models.ProductStatusPending])
	assert.Equal(suite.T(), int64(1), stats.ProductsByStatus[models.ProductStatusRejected])
	assert.Equal(suite.T(), int64(1), stats.ProductsByStatus[models.ProductStatusCertified])
	assert.Equal(suite.T(), int64(0), stats.ProductsByStatus[models.ProductStatusUnderReview])
	assert.Equal(suite.T(), int64(1), stats.CertificatesByAward[models.AwardGold])
	assert.Equal(suite.T(), int64(0), stats.PublishedCertificate)
	assert.Equal(suite.T(), int64(1), stats.PendingProducers)
	assert.Equal(suite.T(), int64(1), stats.ApprovedProducers)
	assert.Equal(suite.T(), int64(1), stats.TotalEvaluations)
	assert.InDelta(suite.T(), 8.0, stats.AverageScore, 0.001)

	_, err = suite.directory.DashboardStats(suite.ctx, actor)
	assert.ErrorIs(suite.T(), err, ErrForbidden)
}
