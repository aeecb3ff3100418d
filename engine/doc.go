// Package engine answers connector-indexed capability queries over a
// backend.
//
// A Session owns one backend for its lifetime. It reads and caches the
// capability summary at construction, validates every connector index
// against it before touching the backend, and decodes the raw records the
// backend returns with the pd and ucsi packages.
//
// Variable-length results are returned as *List values. Each list is
// registered in the session's ledger until released; Close reports any
// list still outstanding. Use wraps the acquire/release pair:
//
//	list, err := s.PDOs(0, false, pd.Source)
//	err = engine.Use(list, err, func(pdos []pd.PDO) error {
//		for _, p := range pdos {
//			fmt.Println(p)
//		}
//		return nil
//	})
//
// Enumerate walks every connector in a fixed order and collects the
// results into a Report.
package engine
