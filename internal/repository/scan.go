package repository

// scannable and rowsIter abstract pgx row types so scan helpers work
// for both QueryRow results and iterated Query results.

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}
