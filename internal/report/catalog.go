// Package report holds the built-in report catalog and renders result tables.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/erp-reports/backend-go/internal/domain"
)

// Reports with a grand total use client-side pagination: the total has to be
// summed over the whole collection, not over the page the backend returns.
var catalog = map[string]domain.ReportDefinition{
	"sales": {
		Name:              "sales",
		Title:             "Sales Report",
		Endpoint:          "/sales",
		PayloadField:      "sales",
		KeyField:          "_id",
		TotalField:        "totalAmount",
		EntityParam:       "customerId",
		DivisionScoped:    true,
		DefaultWindowDays: 7,
		Pagination:        domain.PaginateClient,
		Columns: []domain.Column{
			{Header: "Order No", Field: "orderNo", Kind: domain.ColumnText},
			{Header: "Date", Field: "orderDate", Kind: domain.ColumnDate},
			{Header: "Customer", Field: "customer.name", Kind: domain.ColumnText},
			{Header: "Warehouse", Field: "warehouse.name", Kind: domain.ColumnText},
			{Header: "Quantity", Field: "quantity", Kind: domain.ColumnNumber},
			{Header: "Total Amount", Field: "totalAmount", Kind: domain.ColumnCurrency},
		},
		DetailPath: "/sales/{id}",
	},
	"invoices": {
		Name:              "invoices",
		Title:             "Invoices",
		Endpoint:          "/invoice",
		PayloadField:      "invoices",
		KeyField:          "_id",
		TotalField:        "totalAmount",
		EntityParam:       "customerId",
		DivisionScoped:    true,
		DefaultWindowDays: 7,
		Pagination:        domain.PaginateClient,
		Columns: []domain.Column{
			{Header: "Invoice No", Field: "invoiceNo", Kind: domain.ColumnText},
			{Header: "Invoice Date", Field: "invoiceDate", Kind: domain.ColumnDate},
			{Header: "Customer", Field: "customer.name", Kind: domain.ColumnText},
			{Header: "Due Date", Field: "dueDate", Kind: domain.ColumnDate},
			{Header: "Status", Field: "status", Kind: domain.ColumnText},
			{Header: "Paid Amount", Field: "paidAmount", Kind: domain.ColumnCurrency},
			{Header: "Total Amount", Field: "totalAmount", Kind: domain.ColumnCurrency},
		},
		DetailPath: "/invoice/{id}",
	},
	"credit-notes": {
		Name:              "credit-notes",
		Title:             "Credit Notes",
		Endpoint:          "/credit-notes",
		PayloadField:      "creditNotes",
		KeyField:          "_id",
		TotalField:        "amount",
		EntityParam:       "customerId",
		DivisionScoped:    true,
		DefaultWindowDays: 7,
		Pagination:        domain.PaginateClient,
		Columns: []domain.Column{
			{Header: "Credit Note No", Field: "creditNoteNo", Kind: domain.ColumnText},
			{Header: "Date", Field: "date", Kind: domain.ColumnDate},
			{Header: "Customer", Field: "customer.name", Kind: domain.ColumnText},
			{Header: "Invoice No", Field: "invoiceNo", Kind: domain.ColumnText},
			{Header: "Reason", Field: "reason", Kind: domain.ColumnText},
			{Header: "Amount", Field: "amount", Kind: domain.ColumnCurrency},
		},
		DetailPath: "/credit-notes/{id}",
	},
	"purchases": {
		Name:              "purchases",
		Title:             "Purchases",
		Endpoint:          "/purchases",
		PayloadField:      "purchases",
		KeyField:          "_id",
		TotalField:        "totalAmount",
		EntityParam:       "warehouseId",
		DivisionScoped:    true,
		DefaultWindowDays: 7,
		Pagination:        domain.PaginateClient,
		Columns: []domain.Column{
			{Header: "Purchase No", Field: "purchaseNo", Kind: domain.ColumnText},
			{Header: "Date", Field: "purchaseDate", Kind: domain.ColumnDate},
			{Header: "Supplier", Field: "supplier.name", Kind: domain.ColumnText},
			{Header: "Warehouse", Field: "warehouse.name", Kind: domain.ColumnText},
			{Header: "Total Amount", Field: "totalAmount", Kind: domain.ColumnCurrency},
		},
		CreatePath: "/purchases",
		DetailPath: "/purchases/{id}",
		DeletePath: "/purchases/delete/{id}",
	},
	"customers": {
		Name:              "customers",
		Title:             "Customers",
		Endpoint:          "/customers",
		PayloadField:      "customers",
		KeyField:          "_id",
		DivisionScoped:    true,
		DefaultWindowDays: -1,
		Pagination:        domain.PaginateServer,
		Columns: []domain.Column{
			{Header: "Name", Field: "name", Kind: domain.ColumnText},
			{Header: "Phone", Field: "phone", Kind: domain.ColumnText},
			{Header: "Email", Field: "email", Kind: domain.ColumnText},
			{Header: "Address", Field: "address", Kind: domain.ColumnText},
			{Header: "Outstanding", Field: "outstandingBalance", Kind: domain.ColumnCurrency},
		},
		CreatePath: "/customers",
		DetailPath: "/customers/{id}",
		DeletePath: "/customers/delete/{id}",
	},
	"employees": {
		Name:              "employees",
		Title:             "Employees",
		Endpoint:          "/employees",
		PayloadField:      "employees",
		KeyField:          "_id",
		EntityParam:       "warehouseId",
		DivisionScoped:    true,
		DefaultWindowDays: -1,
		Pagination:        domain.PaginateServer,
		Columns: []domain.Column{
			{Header: "Name", Field: "name", Kind: domain.ColumnText},
			{Header: "Designation", Field: "designation", Kind: domain.ColumnText},
			{Header: "Phone", Field: "phone", Kind: domain.ColumnText},
			{Header: "Joining Date", Field: "joiningDate", Kind: domain.ColumnDate},
			{Header: "Salary", Field: "salary", Kind: domain.ColumnCurrency},
		},
		CreatePath: "/employees",
		DetailPath: "/employees/{id}",
		DeletePath: "/employees/delete/{id}",
	},
	"products": {
		Name:              "products",
		Title:             "Products",
		Endpoint:          "/product",
		PayloadField:      "data",
		KeyField:          "_id",
		DefaultWindowDays: -1,
		Pagination:        domain.PaginateServer,
		Columns: []domain.Column{
			{Header: "Code", Field: "code", Kind: domain.ColumnText},
			{Header: "Name", Field: "name", Kind: domain.ColumnText},
			{Header: "Category", Field: "category", Kind: domain.ColumnText},
			{Header: "Unit", Field: "unit", Kind: domain.ColumnText},
			{Header: "Price", Field: "price", Kind: domain.ColumnCurrency},
		},
		CreatePath: "/product",
		DetailPath: "/product/{id}",
		DeletePath: "/product/delete/{id}",
	},
}

// Source is a backend collection used to fill filter bar options.
type Source struct {
	Endpoint     string
	PayloadField string
}

// Lookup sources. Warehouses always use the plural endpoint.
var (
	CustomerSource  = Source{Endpoint: "/customers", PayloadField: "customers"}
	WarehouseSource = Source{Endpoint: "/warehouses", PayloadField: "warehouses"}
	DivisionSource  = Source{Endpoint: "/divisions", PayloadField: "divisions"}
)

// Lookup returns the definition of a named report.
func Lookup(name string) (domain.ReportDefinition, error) {
	def, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return domain.ReportDefinition{}, fmt.Errorf("%w: %s", domain.ErrUnknownReport, name)
	}
	return def, nil
}

// Catalog lists every report ordered by name.
func Catalog() []domain.ReportDefinition {
	defs := make([]domain.ReportDefinition, 0, len(catalog))
	for _, def := range catalog {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// EntityPath fills the {id} placeholder of an entity action path.
func EntityPath(template, id string) string {
	return strings.ReplaceAll(template, "{id}", id)
}
