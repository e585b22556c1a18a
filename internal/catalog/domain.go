package catalog

import "errors"

// BookTitle tracks a title and its physical copy counts. Copies are counted,
// not individually identified; available_copies is mutated only through the
// ledger operations on Repository, never written from circulation records.
type BookTitle struct {
	ISBN            string
	Title           string
	Author          string
	TotalCopies     int
	AvailableCopies int
}

// ErrTitleNotFound indicates the ISBN is not in the catalog.
var ErrTitleNotFound = errors.New("catalog: title not found")

// ErrNoCopiesAvailable indicates every copy of the title is out on loan.
var ErrNoCopiesAvailable = errors.New("catalog: no copies available")

// ErrDuplicateTitle indicates the ISBN is already registered.
var ErrDuplicateTitle = errors.New("catalog: title already exists")

// ErrInvalidCopyCount indicates a non-positive total copy count.
var ErrInvalidCopyCount = errors.New("catalog: total copies must be positive")
