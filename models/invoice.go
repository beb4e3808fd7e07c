package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as plain JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// AmountTolerance is the maximum difference allowed when comparing an amount
// against its computed value. Zero means exact equality, which is the
// default; nothing in this service changes it.
var AmountTolerance = decimal.Zero

func amountsEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(AmountTolerance) <= 0
}

// InvoiceHeader represents a stored invoice with its lines.
type InvoiceHeader struct {
	ID              string              `json:"id"`
	InvoiceNumber   int64               `json:"invoice_number"`
	Date            string              `json:"date"`
	CustomerName    string              `json:"customer_name"`
	BillingAddress  string              `json:"billing_address"`
	ShippingAddress string              `json:"shipping_address"`
	GSTIN           *string             `json:"gstin"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Items           []InvoiceItem       `json:"items"`
	BillSundries    []InvoiceBillSundry `json:"billsundries"`
}

// InvoiceItem is one purchased line on an invoice.
type InvoiceItem struct {
	ID        string          `json:"id"`
	InvoiceID string          `json:"-"`
	ItemName  string          `json:"item_name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
}

// InvoiceBillSundry is a non-item adjustment line (fee, discount, freight).
// Its amount may be negative.
type InvoiceBillSundry struct {
	ID             string          `json:"id"`
	InvoiceID      string          `json:"-"`
	BillSundryName string          `json:"bill_sundry_name"`
	Amount         decimal.Decimal `json:"amount"`
}

// InvoiceInput is used for creating/updating invoices.
type InvoiceInput struct {
	Date            string                   `json:"date"`
	CustomerName    string                   `json:"customer_name"`
	BillingAddress  string                   `json:"billing_address"`
	ShippingAddress string                   `json:"shipping_address"`
	GSTIN           *string                  `json:"gstin"`
	Items           []InvoiceItemInput       `json:"items"`
	BillSundries    []InvoiceBillSundryInput `json:"billsundries"`
	TotalAmount     decimal.Decimal          `json:"total_amount"`
}

// InvoiceItemInput is one item line of an invoice payload.
type InvoiceItemInput struct {
	ItemName string          `json:"item_name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Amount   decimal.Decimal `json:"amount"`
}

// InvoiceBillSundryInput is one bill-sundry line of an invoice payload.
type InvoiceBillSundryInput struct {
	BillSundryName string          `json:"bill_sundry_name"`
	Amount         decimal.Decimal `json:"amount"`
}

func (it *InvoiceItemInput) Validate() string {
	if it.ItemName == "" {
		return "item_name is required"
	}
	if !amountsEqual(it.Amount, it.Quantity.Mul(it.Price)) {
		return "Amount must be equal to Quantity * Price"
	}
	return ""
}

func (b *InvoiceBillSundryInput) Validate() string {
	if b.BillSundryName == "" {
		return "bill_sundry_name is required"
	}
	return ""
}

// Validate checks the full payload: required header fields, the per-item
// amount rule, and the header total rule. It always runs over the complete
// decoded payload, never over partially-visible fields.
func (i *InvoiceInput) Validate() string {
	if i.Date == "" {
		return "date is required"
	}
	if i.CustomerName == "" {
		return "customer_name is required"
	}
	if i.BillingAddress == "" {
		return "billing_address is required"
	}
	if i.ShippingAddress == "" {
		return "shipping_address is required"
	}

	lineTotal := decimal.Zero
	for n, item := range i.Items {
		if msg := item.Validate(); msg != "" {
			return fmt.Sprintf("items[%d]: %s", n, msg)
		}
		lineTotal = lineTotal.Add(item.Amount)
	}
	for n, bs := range i.BillSundries {
		if msg := bs.Validate(); msg != "" {
			return fmt.Sprintf("billsundries[%d]: %s", n, msg)
		}
		lineTotal = lineTotal.Add(bs.Amount)
	}

	if !amountsEqual(i.TotalAmount, lineTotal) {
		return "TotalAmount must be the sum of InvoiceItems' and InvoiceBillSundrys' amounts."
	}
	return ""
}
