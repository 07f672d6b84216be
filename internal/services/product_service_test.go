package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/tastecert-backend/internal/models"
	"github.com/javajoker/tastecert-backend/internal/utils"
)

func (suite *ServiceTestSuite) TestCreateProductStartsPending() {
	_, actor := suite.createProducer("Fresh")
	vintage := 2021

	product, err := suite.products.CreateProduct(suite.ctx, actor, &CreateProductRequest{
		Name:        "  Douro Red ",
		Description: "Full bodied red from the upper Douro",
		Vintage:     &vintage,
		Ingredients: []string{"touriga nacional", "tinta roriz"},
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Douro Red", product.Name)
	assert.Equal(suite.T(), models.ProductStatusPending, product.Status)
	assert.True(suite.T(), product.SubmittedAt.Equal(suite.clock.Now()))

	stored := suite.reloadProduct(product.ID)
	assert.Equal(suite.T(), []string{"touriga nacional", "tinta roriz"}, []string(stored.Ingredients))
}

func (suite *ServiceTestSuite) TestCreateProductValidation() {
	_, actor := suite.createProducer("Sloppy")

	_, err := suite.products.CreateProduct(suite.ctx, actor, &CreateProductRequest{Name: "X", Description: "short"})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	missing := uuid.New()
	_, err = suite.products.CreateProduct(suite.ctx, actor, &CreateProductRequest{
		Name:        "Mystery",
		Description: "Belongs to a category that is gone",
		CategoryID:  &missing,
	})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	pending := suite.createAccount(models.RoleProducer, models.AccountStatusPending, "Waiting")
	_, err = suite.products.CreateProduct(suite.ctx, Actor{ID: pending.ID, Role: models.RoleProducer}, &CreateProductRequest{
		Name:        "Too Early",
		Description: "Submitted before approval",
	})
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	_, err = suite.products.CreateProduct(suite.ctx, Anonymous, &CreateProductRequest{})
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)
}

func (suite *ServiceTestSuite) TestSearchProductsScopesProducers() {
	mine, me := suite.createProducer("Mine")
	theirs, _ := suite.createProducer("Theirs")
	suite.createProduct(mine, "My Cider", models.ProductStatusPending)
	suite.createProduct(mine, "My Perry", models.ProductStatusRejected)
	suite.createProduct(theirs, "Their Cider", models.ProductStatusPending)

	products, total, err := suite.products.SearchProducts(suite.ctx, me, ProductSearchParams{
		PaginationParams: defaultPage(),
		ProducerID:       &theirs.ID,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), total)
	for _, p := range products {
		assert.Equal(suite.T(), mine.ID, p.ProducerID)
	}

	params := defaultPage()
	params.Search = "cider"
	_, total, err = suite.products.SearchProducts(suite.ctx, suite.admin, ProductSearchParams{PaginationParams: params})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), total)

	pending := models.ProductStatusPending
	_, total, err = suite.products.SearchProducts(suite.ctx, suite.admin, ProductSearchParams{
		PaginationParams: defaultPage(),
		Status:           &pending,
		ProducerID:       &theirs.ID,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
}

func (suite *ServiceTestSuite) TestDeleteProductRemovesDependents() {
	producer, owner := suite.createProducer("Cleanup")
	_, stranger := suite.createProducer("Stranger")
	product := suite.createProduct(producer, "Retired", models.ProductStatusPending)
	suite.certify(product, models.AwardBronze, true)

	err := suite.products.DeleteProduct(suite.ctx, stranger, product.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	require.NoError(suite.T(), suite.products.DeleteProduct(suite.ctx, owner, product.ID))
	assert.Equal(suite.T(), int64(0), suite.count(&models.Product{}, "id = ?", product.ID))
	assert.Equal(suite.T(), int64(0), suite.count(&models.Certificate{}, "product_id = ?", product.ID))
	assert.Equal(suite.T(), int64(0), suite.count(&models.Evaluation{}, "product_id = ?", product.ID))
}

func (suite *ServiceTestSuite) TestExpectedStatusGuardsTransition() {
	producer, _ := suite.createProducer("Racing")
	product := suite.createProduct(producer, "Contested", models.ProductStatusPending)

	_, err := suite.products.UpdateStatus(suite.ctx, suite.admin, product.ID, &UpdateStatusRequest{
		Status:         "REJECTED",
		ExpectedStatus: "UNDER_REVIEW",
	})
	assert.ErrorIs(suite.T(), err, ErrConflict)
	assert.Equal(suite.T(), models.ProductStatusPending, suite.reloadProduct(product.ID).Status)

	_, err = suite.products.UpdateStatus(suite.ctx, suite.admin, product.ID, &UpdateStatusRequest{Status: "SHIPPED"})
	assert.ErrorIs(suite.T(), err, ErrValidation)
}

func (suite *ServiceTestSuite) TestCategoryLifecycle() {
	categories := NewCategoryService(suite.db)

	created, err := categories.Create(suite.ctx, suite.admin, &CategoryRequest{Name: "Craft Beer"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "craft-beer", created.Slug)

	_, err = categories.Create(suite.ctx, suite.admin, &CategoryRequest{Name: "Craft  Beer!"})
	assert.ErrorIs(suite.T(), err, ErrConflict)

	_, actor := suite.createProducer("Brewer")
	_, err = categories.Create(suite.ctx, actor, &CategoryRequest{Name: "Spirits"})
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	updated, err := categories.Update(suite.ctx, suite.admin, created.ID, &CategoryRequest{Name: "Beer", Slug: "beer"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "beer", updated.Slug)

	producer, _ := suite.createProducer("Uses Category")
	product := suite.createProduct(producer, "Pale Ale", models.ProductStatusPending)
	require.NoError(suite.T(), suite.db.Model(product).Update("category_id", created.ID).Error)

	err = categories.Delete(suite.ctx, suite.admin, created.ID)
	assert.ErrorIs(suite.T(), err, ErrConflict)

	require.NoError(suite.T(), suite.db.Model(product).Update("category_id", nil).Error)
	require.NoError(suite.T(), categories.Delete(suite.ctx, suite.admin, created.ID))

	list, err := categories.List(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)
}

func (suite *ServiceTestSuite) TestRegisterAndLogin() {
	utils.SetJWTSecret("service-test-secret")
	auth := NewAuthService(suite.db, suite.cfg, suite.clock)

	account, err := auth.Register(suite.ctx, &RegisterRequest{
		Name:     "Maria Costa",
		Email:    " Maria@Quinta.PT ",
		Password: "Vinho2026",
		Company:  "Quinta da Costa",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "maria@quinta.pt", account.Email)
	assert.Equal(suite.T(), models.RoleProducer, account.Role)
	assert.Equal(suite.T(), models.AccountStatusPending, account.AccountStatus)

	_, err = auth.Register(suite.ctx, &RegisterRequest{
		Name:     "Maria Again",
		Email:    "maria@quinta.pt",
		Password: "Vinho2026",
		Company:  "Quinta da Costa",
	})
	assert.ErrorIs(suite.T(), err, ErrConflict)

	_, err = auth.Register(suite.ctx, &RegisterRequest{Name: "Weak", Email: "weak@example.com", Password: "password", Company: "Weak"})
	assert.ErrorIs(suite.T(), err, ErrValidation)

	_, err = auth.Login(suite.ctx, &LoginRequest{Email: "maria@quinta.pt", Password: "wrong-password"})
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)

	_, err = auth.Login(suite.ctx, &LoginRequest{Email: "nobody@quinta.pt", Password: "Vinho2026"})
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)

	resp, err := auth.Login(suite.ctx, &LoginRequest{Email: " MARIA@quinta.pt", Password: "Vinho2026"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Bearer", resp.TokenType)
	require.NotNil(suite.T(), resp.Account.LastLoginAt)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), account.ID.String(), claims.AccountID)
	assert.Equal(suite.T(), string(models.RoleProducer), claims.Role)

	me, err := auth.Me(suite.ctx, Actor{ID: account.ID, Role: models.RoleProducer})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Quinta da Costa", me.Company)
}

func (suite *ServiceTestSuite) TestNotificationsListAndMarkRead() {
	producer, actor := suite.createProducer("Reader")
	_, other := suite.createProducer("Other Reader")
	product := suite.createProduct(producer, "Notified", models.ProductStatusPending)
	suite.certify(product, models.AwardGold, true)

	list, total, err := suite.notifications.List(suite.ctx, actor, defaultPage(), true)
	require.NoError(suite.T(), err)
	require.Equal(suite.T(), int64(1), total)
	notice := list[0]
	assert.Equal(suite.T(), models.NotificationCertificateIssued, notice.Type)
	assert.Nil(suite.T(), notice.ReadAt)

	_, err = suite.notifications.MarkRead(suite.ctx, other, notice.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	read, err := suite.notifications.MarkRead(suite.ctx, actor, notice.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), read.ReadAt)
	firstRead := *read.ReadAt

	again, err := suite.notifications.MarkRead(suite.ctx, actor, notice.ID)
	require.NoError(suite.T(), err)
	assert.WithinDuration(suite.T(), firstRead, *again.ReadAt, time.Millisecond)

	_, total, err = suite.notifications.List(suite.ctx, actor, defaultPage(), true)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), total)

	_, total, err = suite.notifications.List(suite.ctx, actor, defaultPage(), false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
}
