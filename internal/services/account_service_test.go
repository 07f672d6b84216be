package services

import (
	"errors"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/tastecert-backend/internal/models"
)

func (suite *ServiceTestSuite) TestApproveIsIdempotent() {
	producer := suite.createAccount(models.RoleProducer, models.AccountStatusPending, "Pending Co")

	account, err := suite.accounts.Approve(suite.ctx, suite.admin, producer.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.AccountStatusApproved, account.AccountStatus)
	require.NotNil(suite.T(), account.ApprovedAt)
	approvedAt := *account.ApprovedAt

	suite.clock.Advance(24 * time.Hour)
	again, err := suite.accounts.Approve(suite.ctx, suite.admin, producer.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), approvedAt.Equal(*again.ApprovedAt))

	assert.Equal(suite.T(), int64(1), suite.count(&models.Notification{}, "account_id = ?", producer.ID))
	assert.Equal(suite.T(), int64(1), suite.count(&models.AuditLog{}, "action = ?", "account.status"))
	assert.Equal(suite.T(), 1, suite.mail.count())
}

func (suite *ServiceTestSuite) TestRejectCarriesReason() {
	producer := suite.createAccount(models.RoleProducer, models.AccountStatusPending, "Shady")

	account, err := suite.accounts.UpdateStatus(suite.ctx, suite.admin, producer.ID, &UpdateAccountStatusRequest{
		AccountStatus: "REJECTED",
		Reason:        "missing registration documents",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.AccountStatusRejected, account.AccountStatus)
	assert.Nil(suite.T(), account.ApprovedAt)

	var notice models.Notification
	require.NoError(suite.T(), suite.db.Where("account_id = ?", producer.ID).First(&notice).Error)
	assert.Equal(suite.T(), models.NotificationAccountRejected, notice.Type)
	assert.Contains(suite.T(), notice.Message, "missing registration documents")

	_, err = suite.accounts.UpdateStatus(suite.ctx, suite.admin, producer.ID, &UpdateAccountStatusRequest{AccountStatus: "PENDING"})
	assert.ErrorIs(suite.T(), err, ErrValidation)
}

func (suite *ServiceTestSuite) TestRejectedProducerCannotSubmit() {
	producer := suite.createAccount(models.RoleProducer, models.AccountStatusRejected, "Blocked")
	actor := Actor{ID: producer.ID, Role: models.RoleProducer}

	_, err := suite.products.CreateProduct(suite.ctx, actor, &CreateProductRequest{
		Name:        "Blocked Wine",
		Description: "Should never be stored",
	})
	assert.ErrorIs(suite.T(), err, ErrForbidden)
	assert.Equal(suite.T(), int64(0), suite.count(&models.Product{}, ""))
}

func (suite *ServiceTestSuite) TestModerationRejectsAdminTargets() {
	_, err := suite.accounts.Approve(suite.ctx, suite.admin, suite.admin.ID)
	assert.ErrorIs(suite.T(), err, ErrForbidden)

	_, err = suite.accounts.CloseAccount(suite.ctx, suite.admin, suite.admin.ID, "DELETE")
	assert.ErrorIs(suite.T(), err, ErrForbidden)
}

// seedProducer gives a producer one certified and one pending product.
func (suite *ServiceTestSuite) seedProducer(name string) *models.Account {
	producer, actor := suite.createProducer(name)
	certified := suite.createProduct(producer, name+" Gold", models.ProductStatusPending)
	suite.certify(certified, models.AwardGold, true)
	suite.createProduct(producer, name+" Pending", models.ProductStatusPending)

	qr := NewQRService(suite.db, suite.cfg, suite.clock, suite.collector)
	_, err := qr.GetOrCreate(suite.ctx, actor, certified.ID)
	require.NoError(suite.T(), err)
	return producer
}

type producerFootprint struct {
	Products, Evaluations, Certificates, QRCodes, Notifications, Accounts int64
}

func (suite *ServiceTestSuite) footprint(producer *models.Account) producerFootprint {
	owned := suite.db.Model(&models.Product{}).Select("id").Where("producer_id = ?", producer.ID)
	return producerFootprint{
		Products:      suite.count(&models.Product{}, "producer_id = ?", producer.ID),
		Evaluations:   suite.count(&models.Evaluation{}, "product_id IN (?)", owned),
		Certificates:  suite.count(&models.Certificate{}, "product_id IN (?)", owned),
		QRCodes:       suite.count(&models.QRCode{}, "product_id IN (?)", owned),
		Notifications: suite.count(&models.Notification{}, "account_id = ?", producer.ID),
		Accounts:      suite.count(&models.Account{}, "id = ?", producer.ID),
	}
}

func (suite *ServiceTestSuite) TestCloseAccountDeletesOnlyOwnRows() {
	target := suite.seedProducer("Closing")
	bystander := suite.seedProducer("Staying")
	before := suite.footprint(bystander)

	result, err := suite.accounts.CloseAccount(suite.ctx, suite.admin, target.ID, "DELETE")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), result.Products)
	assert.Equal(suite.T(), int64(1), result.Evaluations)
	assert.Equal(suite.T(), int64(1), result.Certificates)
	assert.Equal(suite.T(), int64(1), result.QRCodes)
	assert.Equal(suite.T(), int64(1), result.Notifications)

	assert.Equal(suite.T(), producerFootprint{}, suite.footprint(target))
	assert.Equal(suite.T(), before, suite.footprint(bystander))
	assert.Equal(suite.T(), int64(1), suite.count(&models.AuditLog{}, "action = ? AND resource_id = ?", "account.close", target.ID))
}

func (suite *ServiceTestSuite) TestCloseAccountWrongConfirmationTouchesNothing() {
	target := suite.seedProducer("Careful")
	before := suite.footprint(target)

	for _, word := range []string{"", "delete", "DELETE ", "yes"} {
		_, err := suite.accounts.CloseAccount(suite.ctx, suite.admin, target.ID, word)
		assert.ErrorIs(suite.T(), err, ErrConfirmationRequired, "confirmation %q", word)
	}

	assert.Equal(suite.T(), before, suite.footprint(target))
}

func (suite *ServiceTestSuite) TestCloseAccountFailureRollsBackCascade() {
	target := suite.seedProducer("Stuck")
	before := suite.footprint(target)

	err := suite.db.Callback().Delete().Before("gorm:delete").Register("test:fail_account_delete", func(db *gorm.DB) {
		if db.Statement.Table == "accounts" {
			_ = db.AddError(errors.New("disk full"))
		}
	})
	require.NoError(suite.T(), err)

	_, err = suite.accounts.CloseAccount(suite.ctx, suite.admin, target.ID, "DELETE")
	require.Error(suite.T(), err)

	assert.Equal(suite.T(), before, suite.footprint(target))
}

func (suite *ServiceTestSuite) TestListProducersFilters() {
	suite.createAccount(models.RoleProducer, models.AccountStatusPending, "Alpha Vineyards")
	suite.createAccount(models.RoleProducer, models.AccountStatusApproved, "Beta Brewing")
	suite.createAccount(models.RoleProducer, models.AccountStatusPending, "Gamma Dairy")

	pending := models.AccountStatusPending
	accounts, total, err := suite.accounts.ListProducers(suite.ctx, suite.admin, AccountFilter{
		PaginationParams: defaultPage(),
		Status:           &pending,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), total)
	assert.Len(suite.T(), accounts, 2)

	params := defaultPage()
	params.Search = "brew"
	accounts, total, err = suite.accounts.ListProducers(suite.ctx, suite.admin, AccountFilter{PaginationParams: params})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
	require.Len(suite.T(), accounts, 1)
	assert.Equal(suite.T(), "Beta Brewing", accounts[0].Name)

	_, producerActor := suite.createProducer("Nosy")
	_, _, err = suite.accounts.ListProducers(suite.ctx, producerActor, AccountFilter{PaginationParams: defaultPage()})
	assert.ErrorIs(suite.T(), err, ErrForbidden)
}
