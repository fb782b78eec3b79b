//go:build sqlite

package evidence

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}
