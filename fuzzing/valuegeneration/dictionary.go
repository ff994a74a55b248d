package valuegeneration

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Bucket names of the shared value dictionary database.
var (
	dictionaryIntegersBucket  = []byte("integers")
	dictionaryAddressesBucket = []byte("addresses")
	dictionaryStringsBucket   = []byte("strings")
	dictionaryBytesBucket     = []byte("bytes")
)

// LoadFromDictionary merges the values persisted in the dictionary database at the provided path into the ValueSet.
// A missing database file is not an error, so first campaigns start from an empty dictionary.
func (vs *ValueSet) LoadFromDictionary(path string) error {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return errors.Wrap(err, "could not open value dictionary")
	}
	defer db.Close()

	return db.View(func(tx *bolt.Tx) error {
		if bucket := tx.Bucket(dictionaryIntegersBucket); bucket != nil {
			if err := bucket.ForEach(func(k []byte, v []byte) error {
				integer, ok := new(big.Int).SetString(string(k), 10)
				if !ok {
					return errors.Errorf("value dictionary holds a malformed integer: %q", k)
				}
				vs.AddInteger(integer)
				return nil
			}); err != nil {
				return err
			}
		}
		if bucket := tx.Bucket(dictionaryAddressesBucket); bucket != nil {
			if err := bucket.ForEach(func(k []byte, v []byte) error {
				vs.AddAddress(common.BytesToAddress(k))
				return nil
			}); err != nil {
				return err
			}
		}
		if bucket := tx.Bucket(dictionaryStringsBucket); bucket != nil {
			if err := bucket.ForEach(func(k []byte, v []byte) error {
				vs.AddString(string(k))
				return nil
			}); err != nil {
				return err
			}
		}
		if bucket := tx.Bucket(dictionaryBytesBucket); bucket != nil {
			if err := bucket.ForEach(func(k []byte, v []byte) error {
				vs.AddBytes(append([]byte{}, v...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveToDictionary persists the ValueSet's values into the dictionary database at the provided path, merging with
// whatever earlier campaigns stored there.
func (vs *ValueSet) SaveToDictionary(path string) error {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return errors.Wrap(err, "could not open value dictionary")
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		integers, err := tx.CreateBucketIfNotExists(dictionaryIntegersBucket)
		if err != nil {
			return err
		}
		for _, integer := range vs.Integers() {
			if err = integers.Put([]byte(integer.String()), nil); err != nil {
				return err
			}
		}

		addresses, err := tx.CreateBucketIfNotExists(dictionaryAddressesBucket)
		if err != nil {
			return err
		}
		for _, address := range vs.Addresses() {
			if err = addresses.Put(address.Bytes(), nil); err != nil {
				return err
			}
		}

		strs, err := tx.CreateBucketIfNotExists(dictionaryStringsBucket)
		if err != nil {
			return err
		}
		for _, str := range vs.Strings() {
			if len(str) == 0 {
				continue
			}
			if err = strs.Put([]byte(str), nil); err != nil {
				return err
			}
		}

		byteValues, err := tx.CreateBucketIfNotExists(dictionaryBytesBucket)
		if err != nil {
			return err
		}
		for _, b := range vs.Bytes() {
			// Bytes are stored under their own content; empty values still need a non-nil key.
			key := b
			if len(key) == 0 {
				key = []byte{0x00}
			}
			if err = byteValues.Put(key, b); err != nil {
				return err
			}
		}
		return nil
	})
}
