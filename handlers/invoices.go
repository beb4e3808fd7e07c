package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/satheeshds/invoicing/models"
)

// API holds the database handle shared by all invoice handlers. Construct it
// with New and mount Routes on a router.
type API struct {
	db *sql.DB
}

// New returns an API backed by the given database.
func New(db *sql.DB) *API {
	return &API{db: db}
}

// Register adds the invoice routes to a router. Used by main and by tests.
func (a *API) Register(r chi.Router) {
	r.Get("/invoices", a.ListInvoices)
	r.Post("/invoices", a.CreateInvoice)
	r.Get("/invoices/{id}", a.GetInvoice)
	r.Put("/invoices/{id}", a.UpdateInvoice)
	r.Delete("/invoices/{id}", a.DeleteInvoice)
}

const headerSelectQuery = `SELECT id, invoice_number, date, customer_name, billing_address, shipping_address, gstin, total_amount
		FROM invoice_headers`

func scanHeader(scanner interface{ Scan(...any) error }) (models.InvoiceHeader, error) {
	var inv models.InvoiceHeader
	err := scanner.Scan(&inv.ID, &inv.InvoiceNumber, &inv.Date, &inv.CustomerName,
		&inv.BillingAddress, &inv.ShippingAddress, &inv.GSTIN, &inv.TotalAmount)
	return inv, err
}

func (a *API) loadLines(inv *models.InvoiceHeader) error {
	inv.Items = []models.InvoiceItem{}
	inv.BillSundries = []models.InvoiceBillSundry{}

	rows, err := a.db.Query(`SELECT id, invoice_id, item_name, quantity, price, amount
		FROM invoice_items WHERE invoice_id = ?`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ItemName, &it.Quantity, &it.Price, &it.Amount); err != nil {
			return err
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = a.db.Query(`SELECT id, invoice_id, bill_sundry_name, amount
		FROM invoice_billsundry WHERE invoice_id = ?`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var bs models.InvoiceBillSundry
		if err := rows.Scan(&bs.ID, &bs.InvoiceID, &bs.BillSundryName, &bs.Amount); err != nil {
			return err
		}
		inv.BillSundries = append(inv.BillSundries, bs)
	}
	return rows.Err()
}

func (a *API) getInvoiceByID(id string) (models.InvoiceHeader, error) {
	inv, err := scanHeader(a.db.QueryRow(headerSelectQuery+" WHERE id = ?", id))
	if err != nil {
		return inv, err
	}
	err = a.loadLines(&inv)
	return inv, err
}

// insertLines inserts the payload's item and bill-sundry rows for the given
// header, each with a freshly generated identifier.
func insertLines(tx *sql.Tx, invoiceID string, input models.InvoiceInput) error {
	for _, item := range input.Items {
		_, err := tx.Exec(`INSERT INTO invoice_items (id, invoice_id, item_name, quantity, price, amount)
			VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), invoiceID, item.ItemName, item.Quantity, item.Price, item.Amount)
		if err != nil {
			return err
		}
	}
	for _, bs := range input.BillSundries {
		_, err := tx.Exec(`INSERT INTO invoice_billsundry (id, invoice_id, bill_sundry_name, amount)
			VALUES (?, ?, ?, ?)`,
			uuid.NewString(), invoiceID, bs.BillSundryName, bs.Amount)
		if err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ListInvoices lists all invoices
// @Summary      List invoices
// @Description  Get every stored invoice with its item and bill-sundry lines.
// @Tags         invoices
// @Produce      json
// @Success      200  {object}  Response{data=[]models.InvoiceHeader}
// @Router       /invoices [get]
func (a *API) ListInvoices(w http.ResponseWriter, r *http.Request) {
	rows, err := a.db.Query(headerSelectQuery)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	invoices := []models.InvoiceHeader{}
	for rows.Next() {
		inv, err := scanHeader(rows)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for n := range invoices {
		if err := a.loadLines(&invoices[n]); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, invoices)
}

// GetInvoice retrieves a single invoice by ID
// @Summary      Get invoice
// @Description  Get one invoice with its item and bill-sundry lines.
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  Response{data=models.InvoiceHeader}
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id} [get]
func (a *API) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inv, err := a.getInvoiceByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Invoice not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// CreateInvoice creates a new invoice
// @Summary      Create invoice
// @Description  Validate and store an invoice with its item and bill-sundry lines. Every item's amount must equal quantity * price and the total must equal the sum of all line amounts.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        invoice  body      models.InvoiceInput  true  "Invoice contents"
// @Success      200      {object}  Response{data=models.InvoiceHeader}
// @Failure      422      {object}  Response{error=string}
// @Failure      409      {object}  Response{error=string}
// @Router       /invoices [post]
func (a *API) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var input models.InvoiceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	tx, err := a.db.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer tx.Rollback()

	// The next invoice number is claimed inside the insert; the UNIQUE
	// constraint rejects the loser of a racing create.
	id := uuid.NewString()
	_, err = tx.Exec(`INSERT INTO invoice_headers (id, invoice_number, date, customer_name, billing_address, shipping_address, gstin, total_amount)
		VALUES (?, (SELECT COALESCE(MAX(invoice_number), 0) + 1 FROM invoice_headers), ?, ?, ?, ?, ?, ?)`,
		id, input.Date, input.CustomerName, input.BillingAddress, input.ShippingAddress,
		input.GSTIN, input.TotalAmount)
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "invoice number already assigned, retry the request")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	if err := insertLines(tx, id, input); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "invoice number already assigned, retry the request")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	inv, err := a.getInvoiceByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to re-fetch created invoice: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// UpdateInvoice replaces an existing invoice
// @Summary      Update invoice
// @Description  Overwrite the header fields and replace all item and bill-sundry lines with the payload's. Line identifiers are regenerated.
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Invoice ID"
// @Param        invoice  body      models.InvoiceInput  true  "Replacement invoice contents"
// @Success      200      {object}  Response{data=models.InvoiceHeader}
// @Failure      404      {object}  Response{error=string}
// @Failure      422      {object}  Response{error=string}
// @Router       /invoices/{id} [put]
func (a *API) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var input models.InvoiceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := input.Validate(); msg != "" {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return
	}

	tx, err := a.db.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE invoice_headers SET date = ?, customer_name = ?, billing_address = ?,
		shipping_address = ?, gstin = ?, total_amount = ? WHERE id = ?`,
		input.Date, input.CustomerName, input.BillingAddress, input.ShippingAddress,
		input.GSTIN, input.TotalAmount, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Invoice not found")
		return
	}

	// Lines are replaced wholesale, not diffed.
	if _, err := tx.Exec("DELETE FROM invoice_items WHERE invoice_id = ?", id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if _, err := tx.Exec("DELETE FROM invoice_billsundry WHERE invoice_id = ?", id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := insertLines(tx, id, input); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	inv, err := a.getInvoiceByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to re-fetch updated invoice: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// DeleteInvoice deletes an invoice
// @Summary      Delete invoice
// @Description  Remove an invoice and all of its lines.
// @Tags         invoices
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  Response{data=map[string]string}
// @Failure      404  {object}  Response{error=string}
// @Router       /invoices/{id} [delete]
func (a *API) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := a.db.Exec("DELETE FROM invoice_headers WHERE id = ?", id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Invoice not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Invoice deleted successfully"})
}
