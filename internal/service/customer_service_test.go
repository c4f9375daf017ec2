package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenshop/storefront/internal/domain"
	"github.com/greenshop/storefront/internal/service"
	"github.com/greenshop/storefront/pkg/errors"
)

func newCustomerService() *service.CustomerService {
	repos, _, logger := newFixture()
	return service.NewCustomerService(repos, "test-secret", time.Hour, logger)
}

func TestCustomerRegisterAndLogin(t *testing.T) {
	customers := newCustomerService()
	ctx := context.Background()

	registered, err := customers.Register(ctx, service.RegisterRequest{
		Name:     "Lina Haddad",
		Phone:    "+962790001122",
		Email:    "lina@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.Token)
	assert.Nil(t, registered.Customer.PasswordHash, "hash never leaves the service")
	require.NotNil(t, registered.Customer.Email)
	assert.Equal(t, "lina@example.com", *registered.Customer.Email)

	logged, err := customers.Login(ctx, service.LoginRequest{
		Phone:    "+962790001122",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.Customer.ID, logged.Customer.ID)

	id, err := customers.ParseToken(logged.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.Customer.ID, id)
}

func TestCustomerRegisterDuplicatePhone(t *testing.T) {
	customers := newCustomerService()
	ctx := context.Background()

	_, err := customers.Register(ctx, service.RegisterRequest{
		Name: "First", Phone: "+962790001122", Password: "password1",
	})
	require.NoError(t, err)

	_, err = customers.Register(ctx, service.RegisterRequest{
		Name: "Second", Phone: "+962790001122", Password: "password2",
	})

	var conflict *errors.ErrConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "phone number already registered", conflict.Message)
}

func TestCustomerLoginFailuresDoNotLeak(t *testing.T) {
	customers := newCustomerService()
	ctx := context.Background()

	_, err := customers.Register(ctx, service.RegisterRequest{
		Name: "Lina", Phone: "+962790001122", Password: "correct horse",
	})
	require.NoError(t, err)

	_, wrongPassword := customers.Login(ctx, service.LoginRequest{
		Phone: "+962790001122", Password: "wrong",
	})
	_, unknownPhone := customers.Login(ctx, service.LoginRequest{
		Phone: "+962790999999", Password: "correct horse",
	})

	var unauthorized *errors.ErrUnauthorized
	require.ErrorAs(t, wrongPassword, &unauthorized)
	require.ErrorAs(t, unknownPhone, &unauthorized)
	assert.Equal(t, wrongPassword.Error(), unknownPhone.Error(),
		"wrong password and unknown phone are indistinguishable")
}

func TestCustomerParseTokenRejectsGarbage(t *testing.T) {
	customers := newCustomerService()

	for _, token := range []string{
		"",
		"not.a.jwt",
		"eyJhbGciOiJub25lIn0.eyJjdXN0b21lcl9pZCI6IngifQ.",
	} {
		_, err := customers.ParseToken(token)
		var unauthorized *errors.ErrUnauthorized
		assert.ErrorAs(t, err, &unauthorized, "token %q", token)
	}
}

func TestCustomerParseTokenRejectsForeignSecret(t *testing.T) {
	repos, _, logger := newFixture()
	issuer := service.NewCustomerService(repos, "secret-a", time.Hour, logger)
	verifier := service.NewCustomerService(repos, "secret-b", time.Hour, logger)
	ctx := context.Background()

	registered, err := issuer.Register(ctx, service.RegisterRequest{
		Name: "Lina", Phone: "+962790001122", Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = verifier.ParseToken(registered.Token)
	var unauthorized *errors.ErrUnauthorized
	assert.ErrorAs(t, err, &unauthorized)
}

func TestCustomerAddressBook(t *testing.T) {
	customers := newCustomerService()
	customerID := uuid.New()
	ctx := context.Background()

	_, err := customers.AddAddress(ctx, customerID, &domain.Address{Street: "12 Harbor Rd"})
	var valErr *errors.ErrValidation
	require.ErrorAs(t, err, &valErr, "city and country are required")

	added, err := customers.AddAddress(ctx, customerID, &domain.Address{
		Street:  "12 Harbor Rd",
		City:    "Amman",
		Country: "Jordan",
	})
	require.NoError(t, err)
	assert.Equal(t, customerID, added.CustomerID)

	list, err := customers.ListAddresses(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, added.ID, list[0].ID)

	other, err := customers.ListAddresses(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other, "address book is scoped per customer")
}
