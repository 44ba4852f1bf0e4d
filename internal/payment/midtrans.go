// Package payment charges buyers and sellers through Midtrans.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

var (
	ErrNotAuthorized = errors.New("payment: charge was not accepted")
	ErrInvalidAmount = errors.New("payment: amount must be positive")
)

// Status is the settlement state of a charge as far as the platform cares.
type Status string

const (
	StatusPending Status = "pending"
	StatusSettled Status = "settled"
	StatusFailed  Status = "failed"
)

type VANumber struct {
	Bank     string `json:"bank"`
	VANumber string `json:"va_number"`
}

type Charge struct {
	Ref           string     `json:"payment_ref"`
	TransactionID string     `json:"transaction_id"`
	Status        string     `json:"transaction_status"`
	VANumbers     []VANumber `json:"va_numbers"`
}

// Gateway is what the handlers need from a payment provider.
type Gateway interface {
	Charge(ctx context.Context, ref string, amountCents int64, description string) (Charge, error)
	Status(ctx context.Context, ref string) (Status, error)
}

// CoreAPI is the subset of the Midtrans core API client in use.
type CoreAPI interface {
	ChargeTransaction(req *coreapi.ChargeReq) (*coreapi.ChargeResponse, *midtrans.Error)
	CheckTransaction(param string) (*coreapi.TransactionStatusResponse, *midtrans.Error)
}

type Midtrans struct {
	api  CoreAPI
	bank midtrans.Bank
}

// NewMidtrans builds a gateway charging bank transfers through a BCA virtual account.
func NewMidtrans(serverKey string, env midtrans.EnvironmentType) *Midtrans {
	client := coreapi.Client{}
	client.New(serverKey, env)
	return &Midtrans{api: &client, bank: midtrans.BankBca}
}

func NewMidtransWithAPI(api CoreAPI) *Midtrans {
	return &Midtrans{api: api, bank: midtrans.BankBca}
}

func (m *Midtrans) Charge(ctx context.Context, ref string, amountCents int64, description string) (Charge, error) {
	if amountCents <= 0 {
		return Charge{}, ErrInvalidAmount
	}
	if err := ctx.Err(); err != nil {
		return Charge{}, err
	}

	req := &coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeBankTransfer,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  ref,
			GrossAmt: amountCents,
		},
		BankTransfer: &coreapi.BankTransferDetails{
			Bank: m.bank,
		},
		CustomField1: &description,
	}

	resp, merr := m.api.ChargeTransaction(req)
	if merr != nil {
		return Charge{}, fmt.Errorf("midtrans charge %s: %w", ref, merr)
	}
	if resp == nil || resp.TransactionStatus != "pending" {
		return Charge{}, ErrNotAuthorized
	}

	out := Charge{Ref: ref, TransactionID: resp.TransactionID, Status: resp.TransactionStatus}
	for _, va := range resp.VaNumbers {
		out.VANumbers = append(out.VANumbers, VANumber{Bank: va.Bank, VANumber: va.VANumber})
	}
	return out, nil
}

// Status asks Midtrans for the current state of a charge. Webhook payloads
// are never trusted on their own.
func (m *Midtrans) Status(ctx context.Context, ref string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resp, merr := m.api.CheckTransaction(ref)
	if merr != nil {
		return "", fmt.Errorf("midtrans status %s: %w", ref, merr)
	}
	return mapStatus(resp.TransactionStatus, resp.FraudStatus), nil
}

func mapStatus(transaction, fraud string) Status {
	switch transaction {
	case "settlement":
		return StatusSettled
	case "capture":
		if fraud == "" || fraud == "accept" {
			return StatusSettled
		}
		return StatusPending
	case "pending":
		return StatusPending
	}
	return StatusFailed
}
