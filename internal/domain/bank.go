/**
 * @description
 * Domain models for payees (counterparties we originate payments to) and bank
 * accounts (the user's own funding accounts), plus the DTOs used by their CRUD
 * endpoints.
 */

package domain

import "time"

// Payee is a counterparty a user can pay. Email and phone are stored
// encrypted at rest by the persistence layer.
type Payee struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	UniqueID  string    `json:"-"`
	PayeeType string    `json:"payee_type"`
	PayeeName string    `json:"payee_name"`
	Nickname  string    `json:"-"`
	Email     *string   `json:"email"`
	PhoneNo   *string   `json:"phone_no"`
	Address1  string    `json:"address1"`
	Address2  *string   `json:"address2"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zip       string    `json:"zip"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// PayeeBank is the primary bank account linked to a payee.
type PayeeBank struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"-"`
	PayeeID           int64     `json:"payee_id"`
	AccountHolderName string    `json:"account_holder_name"`
	RoutingNo         string    `json:"routing_no"`
	AccountNo         string    `json:"account_no"`
	AccountType       string    `json:"account_type"`
	CreatedAt         time.Time `json:"-"`
	UpdatedAt         time.Time `json:"-"`
}

// AdditionalBank is a secondary bank account linked to a payee. It is
// addressed externally by its short UniqueID rather than the row id.
type AdditionalBank struct {
	ID                int64     `json:"-"`
	UniqueID          string    `json:"id"`
	UserID            int64     `json:"-"`
	PayeeID           int64     `json:"payee_id"`
	AccountHolderName string    `json:"account_holder_name"`
	BankAccName       *string   `json:"bank_acc_name,omitempty"`
	RoutingNo         string    `json:"routing_no"`
	AccountNo         string    `json:"account_no"`
	AccountType       string    `json:"account_type"`
	CreatedAt         time.Time `json:"-"`
	UpdatedAt         time.Time `json:"-"`
}

// BankAccount is one of the user's own funding accounts.
type BankAccount struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Name            string    `json:"name"`
	BankAccountType string    `json:"bank_account_type"`
	AccountName     string    `json:"account_name"`
	RoutingNo       string    `json:"routing_no"`
	AccountNo       string    `json:"account_no"`
	AccountType     string    `json:"account_type"`
	BankName        string    `json:"bank_name"`
	Status          string    `json:"status"` // pending_verification, verified, failed
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

// CreatePayeePayload is the DTO for creating a payee.
type CreatePayeePayload struct {
	PayeeType       string  `json:"payee_type"`
	PayeeName       string  `json:"payee_name"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	PayeeExternalID string  `json:"payee_external_id"`
	AddressLine1    string  `json:"address_line1"`
	AddressLine2    *string `json:"address_line2,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	City            string  `json:"city"`
	State           string  `json:"state"`
	Zip             string  `json:"zip"`
	Country         string  `json:"country"`
}

// UpdatePayeePayload is the DTO for a partial payee update.
type UpdatePayeePayload struct {
	PayeeType    *string `json:"payee_type,omitempty"`
	PayeeName    *string `json:"payee_name,omitempty"`
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Email        *string `json:"email,omitempty"`
	AddressLine1 *string `json:"address_line1,omitempty"`
	AddressLine2 *string `json:"address_line2,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	City         *string `json:"city,omitempty"`
	State        *string `json:"state,omitempty"`
	Zip          *string `json:"zip,omitempty"`
	Country      *string `json:"country,omitempty"`
}

// LinkPayeeBankPayload is the DTO for attaching a bank account to a payee.
// The first linked account becomes the payee's primary bank; later ones are
// stored as additional banks.
type LinkPayeeBankPayload struct {
	AccountName          string  `json:"account_name"`
	RoutingNumber        string  `json:"routing_number"`
	AccountNumber        string  `json:"account_number"`
	ConfirmAccountNumber string  `json:"confirm_account_number"`
	AccountType          string  `json:"account_type"`
	BankAccName          *string `json:"bank_acc_name,omitempty"`
}

// CreateBankPayload is the DTO for creating one of the user's own bank
// accounts.
type CreateBankPayload struct {
	Name                 string `json:"name"`
	BankAccountType      string `json:"bank_account_type"`
	AccountName          string `json:"account_name"`
	RoutingNo            string `json:"routing_no"`
	AccountNo            string `json:"account_no"`
	ConfirmAccountNumber string `json:"confirm_account_number"`
	AccountType          string `json:"account_type"`
	BankName             string `json:"bank_name"`
}

// PayeeWithBanks bundles a payee with its linked accounts for list/detail
// responses.
type PayeeWithBanks struct {
	Payee           Payee            `json:"data"`
	PrimaryAccount  *PayeeBank       `json:"primary_account"`
	AdditionalBanks []AdditionalBank `json:"additional_banks"`
}

// BankListOptions controls filtering and pagination for bank listings.
type BankListOptions struct {
	BankName    string
	AccountType string
	Page        int
	PerPage     int
}

// PayeeListOptions controls pagination for payee listings.
type PayeeListOptions struct {
	Page    int
	PerPage int
}
