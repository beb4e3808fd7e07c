package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func validInput() InvoiceInput {
	return InvoiceInput{
		Date:            "2024-01-01",
		CustomerName:    "Acme",
		BillingAddress:  "1 Main St",
		ShippingAddress: "1 Main St",
		Items: []InvoiceItemInput{
			{ItemName: "Widget", Quantity: dec("2"), Price: dec("5.0"), Amount: dec("10.0")},
		},
		BillSundries: []InvoiceBillSundryInput{
			{BillSundryName: "Freight", Amount: dec("2.0")},
		},
		TotalAmount: dec("12.0"),
	}
}

func TestInvoiceInputValidate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		in := validInput()
		assert.Empty(t, in.Validate())
	})

	t.Run("ItemAmountMismatch", func(t *testing.T) {
		in := validInput()
		in.Items[0].Amount = dec("11.0")
		in.TotalAmount = dec("13.0")
		assert.Equal(t, "items[0]: Amount must be equal to Quantity * Price", in.Validate())
	})

	t.Run("TotalMismatch", func(t *testing.T) {
		in := validInput()
		in.TotalAmount = dec("11.0")
		assert.Equal(t, "TotalAmount must be the sum of InvoiceItems' and InvoiceBillSundrys' amounts.", in.Validate())
	})

	t.Run("NegativeBillSundryAllowed", func(t *testing.T) {
		in := validInput()
		in.BillSundries[0].Amount = dec("-2.0")
		in.TotalAmount = dec("8.0")
		assert.Empty(t, in.Validate())
	})

	t.Run("NoLines", func(t *testing.T) {
		in := validInput()
		in.Items = nil
		in.BillSundries = nil
		in.TotalAmount = dec("0")
		assert.Empty(t, in.Validate())
	})

	t.Run("RequiredFields", func(t *testing.T) {
		for _, tc := range []struct {
			clear func(*InvoiceInput)
			msg   string
		}{
			{func(i *InvoiceInput) { i.Date = "" }, "date is required"},
			{func(i *InvoiceInput) { i.CustomerName = "" }, "customer_name is required"},
			{func(i *InvoiceInput) { i.BillingAddress = "" }, "billing_address is required"},
			{func(i *InvoiceInput) { i.ShippingAddress = "" }, "shipping_address is required"},
			{func(i *InvoiceInput) { i.Items[0].ItemName = "" }, "items[0]: item_name is required"},
			{func(i *InvoiceInput) { i.BillSundries[0].BillSundryName = "" }, "billsundries[0]: bill_sundry_name is required"},
		} {
			in := validInput()
			tc.clear(&in)
			assert.Equal(t, tc.msg, in.Validate())
		}
	})

	t.Run("GSTINOptional", func(t *testing.T) {
		in := validInput()
		require.Nil(t, in.GSTIN)
		assert.Empty(t, in.Validate())
	})
}

// Decimal arithmetic keeps comparisons exact where binary floats would
// drift: 0.1 * 3 is exactly 0.3 here.
func TestValidateDecimalExactness(t *testing.T) {
	in := validInput()
	in.Items = []InvoiceItemInput{
		{ItemName: "Bulk", Quantity: dec("0.1"), Price: dec("3"), Amount: dec("0.3")},
	}
	in.BillSundries = nil
	in.TotalAmount = dec("0.3")
	assert.Empty(t, in.Validate())

	in.Items[0].Amount = dec("0.30000000000000004")
	in.TotalAmount = dec("0.30000000000000004")
	assert.Equal(t, "items[0]: Amount must be equal to Quantity * Price", in.Validate())
}

func TestAmountToleranceDefaultsToExact(t *testing.T) {
	require.True(t, AmountTolerance.IsZero())

	in := validInput()
	in.Items[0].Amount = dec("10.000001")
	in.TotalAmount = dec("12.000001")
	assert.NotEmpty(t, in.Validate())
}
