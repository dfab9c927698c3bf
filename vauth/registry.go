package vauth

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"

	"github.com/HappyCodeDay/veyon/vdef"
)

var (
	bucketTrust   = []byte("trust_records")
	bucketHistory = []byte("trust_history")
	bucketClients = []byte("authorized_clients")
)

// KeySource records how a key came to be installed.
type KeySource int

const (
	SourceGenerated KeySource = iota
	SourceImported
)

func (s KeySource) String() string {
	if s == SourceImported {
		return "imported"
	}
	return "generated"
}

// TrustRecord describes the installed public key for a (role, scope). At
// most one current record exists per (role, scope); re-installation
// overwrites it and pushes the prior record onto the history.
type TrustRecord struct {
	Role        string           `cbor:"1,keyasint"`
	Scope       string           `cbor:"2,keyasint"`
	Fingerprint vdef.Fingerprint `cbor:"3,keyasint"`
	Source      KeySource        `cbor:"4,keyasint"`
	InstalledAt time.Time        `cbor:"5,keyasint"`
	Replaced    vdef.Fingerprint `cbor:"6,keyasint,omitempty"`
}

// clientRecord stores one authorized client fingerprint for a role.
type clientRecord struct {
	Fingerprint vdef.Fingerprint `cbor:"1,keyasint"`
	AddedAt     time.Time        `cbor:"2,keyasint"`
}

// TrustRegistry persists an audit trail of key installations and the client
// fingerprints authorized per role, backed by bbolt.
type TrustRegistry struct {
	db *bbolt.DB
}

// OpenTrustRegistry opens (or creates) the registry database at dbPath.
// If dbPath is empty, the platform default state directory is used.
func OpenTrustRegistry(dbPath string) (*TrustRegistry, error) {
	if dbPath == "" {
		dbPath = filepath.Join(defaultStateDir(), "trust.db")
	}
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("veyon: create state directory: %w", err)
		}
	}

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("veyon: open trust registry: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketTrust, bucketHistory, bucketClients} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("veyon: create buckets: %w", err)
	}

	return &TrustRegistry{db: db}, nil
}

// Close releases the database.
func (r *TrustRegistry) Close() error {
	return r.db.Close()
}

func trustKey(role vdef.Role, scope vdef.Scope) []byte {
	return []byte(role.String() + "|" + scope.String())
}

// RecordInstall stores the current trust record for (role, scope) and
// appends it to the history. replaced may be zero when no prior key existed.
func (r *TrustRegistry) RecordInstall(role vdef.Role, scope vdef.Scope, fp vdef.Fingerprint, source KeySource, replaced vdef.Fingerprint) error {
	rec := TrustRecord{
		Role:        role.String(),
		Scope:       scope.String(),
		Fingerprint: fp,
		Source:      source,
		InstalledAt: timeNow(),
		Replaced:    replaced,
	}
	data, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}

	return r.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketTrust).Put(trustKey(role, scope), data); err != nil {
			return err
		}

		hist := tx.Bucket(bucketHistory)
		seq, err := hist.NextSequence()
		if err != nil {
			return err
		}
		histKey := fmt.Sprintf("%s|%s|%016x", role, scope, seq)
		return hist.Put([]byte(histKey), data)
	})
}

// Current returns the trust record for (role, scope), or nil if none exists.
func (r *TrustRegistry) Current(role vdef.Role, scope vdef.Scope) (*TrustRecord, error) {
	var rec *TrustRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTrust).Get(trustKey(role, scope))
		if data == nil {
			return nil
		}
		t := new(TrustRecord)
		if err := cbor.Unmarshal(data, t); err != nil {
			return nil // Treat corrupted record as absent.
		}
		rec = t
		return nil
	})
	return rec, err
}

// History returns all recorded installations for (role, scope) in
// installation order.
func (r *TrustRegistry) History(role vdef.Role, scope vdef.Scope) ([]TrustRecord, error) {
	prefix := []byte(role.String() + "|" + scope.String() + "|")
	var records []TrustRecord

	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec TrustRecord
			if err := cbor.Unmarshal(v, &rec); err != nil {
				continue // Skip corrupted records.
			}
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

func clientKey(role vdef.Role, fp vdef.Fingerprint) []byte {
	return []byte(role.String() + "|" + fp.String())
}

// AuthorizeClient records a client fingerprint as authorized for the role.
// Authorizing an already-authorized client refreshes its record.
func (r *TrustRegistry) AuthorizeClient(role vdef.Role, fp vdef.Fingerprint) error {
	if fp.IsZero() {
		return fmt.Errorf("veyon: cannot authorize zero fingerprint")
	}
	rec := clientRecord{Fingerprint: fp, AddedAt: timeNow()}
	data, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClients).Put(clientKey(role, fp), data)
	})
}

// RevokeClient removes a client authorization. Revoking an unknown client
// is not an error.
func (r *TrustRegistry) RevokeClient(role vdef.Role, fp vdef.Fingerprint) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketClients).Delete(clientKey(role, fp))
	})
}

// IsClientAuthorized reports whether the fingerprint is authorized for the role.
func (r *TrustRegistry) IsClientAuthorized(role vdef.Role, fp vdef.Fingerprint) (bool, error) {
	var authorized bool
	err := r.db.View(func(tx *bbolt.Tx) error {
		authorized = tx.Bucket(bucketClients).Get(clientKey(role, fp)) != nil
		return nil
	})
	return authorized, err
}

// AuthorizedClients returns all fingerprints authorized for the role.
func (r *TrustRegistry) AuthorizedClients(role vdef.Role) ([]vdef.Fingerprint, error) {
	prefix := []byte(role.String() + "|")
	var fps []vdef.Fingerprint

	err := r.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketClients).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var rec clientRecord
			if err := cbor.Unmarshal(v, &rec); err != nil {
				continue // Skip corrupted records.
			}
			fps = append(fps, rec.Fingerprint)
		}
		return nil
	})
	return fps, err
}
