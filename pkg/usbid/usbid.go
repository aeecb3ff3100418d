package usbid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/ardnew/typecinfo/pkg"
)

// DefaultPaths lists the standard locations for the USB ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// ErrNotFound indicates none of the searched paths held a database.
var ErrNotFound = errors.New("usb.ids database not found")

// Database maps vendor and product IDs to names.
type Database struct {
	vendors  map[uint16]string // VID -> vendor name
	products map[uint32]string // (VID<<16)|PID -> product name
}

// Open parses the first readable database among paths, or DefaultPaths
// when none are given. It returns the path that was used.
func Open(paths ...string) (*Database, string, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("usbid: %w", err)
		}
		db, err := Parse(f)
		f.Close()
		if err != nil {
			return nil, "", fmt.Errorf("usbid: %s: %w", path, err)
		}
		pkg.LogDebug(pkg.ComponentCLI, "loaded usb.ids",
			"path", path, "vendors", db.VendorCount(), "products", db.ProductCount())
		return db, path, nil
	}
	return nil, "", ErrNotFound
}

// Parse reads the usb.ids format from r. Only the vendor and product
// sections are kept; class and language tables are skipped.
func Parse(r io.Reader) (*Database, error) {
	db := &Database{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
	}
	scanner := bufio.NewScanner(r)
	var vid uint16
	inVendor := false

	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if strings.HasPrefix(line, "\t\t") {
			continue // interface lines
		}
		if line[0] == '\t' {
			if !inVendor {
				continue
			}
			id, name, ok := splitEntry(line[1:])
			if ok {
				db.products[uint32(vid)<<16|uint32(id)] = name
			}
			continue
		}
		id, name, ok := splitEntry(line)
		inVendor = ok
		if ok {
			vid = id
			db.vendors[vid] = name
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return db, nil
}

// splitEntry parses "xxxx  Name". Class ("C xx") and other section
// headers do not start with four hex digits and are rejected.
func splitEntry(s string) (uint16, string, bool) {
	if len(s) < 6 || s[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	return uint16(id), strings.TrimLeft(s[5:], " "), true
}

// Vendor returns the vendor name for vid, or "" if unknown.
func (db *Database) Vendor(vid uint16) string {
	if db == nil {
		return ""
	}
	return db.vendors[vid]
}

// Product returns the product name for vid:pid, or "" if unknown.
func (db *Database) Product(vid, pid uint16) string {
	if db == nil {
		return ""
	}
	return db.products[uint32(vid)<<16|uint32(pid)]
}

// VendorCount returns the number of vendors in the database.
func (db *Database) VendorCount() int { return len(db.vendors) }

// ProductCount returns the number of products in the database.
func (db *Database) ProductCount() int { return len(db.products) }
