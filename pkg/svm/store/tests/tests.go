package tests

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/svm/store"
)

func RunTests(t *testing.T, s store.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s store.Store){
		testRoundTrip,
		testUpdateAndDelete,
		testGetAllByOwner,
		testGetAllByOwnerMixedCase,
		testDuplicateCommit,
		testInvalidBatch,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()

	expected := &store.Record{
		Address:    newKey(t),
		Owner:      newKey(t),
		Lamports:   1_000_000,
		Data:       []byte{1, 2, 3, 4},
		Executable: true,
	}

	_, err := s.Get(ctx, expected.Address)
	assert.Equal(t, store.ErrAccountNotFound, err)

	_, err = s.GetCommit(ctx, "sig1")
	assert.Equal(t, store.ErrCommitNotFound, err)

	batch := store.NewBatch("sig1")
	batch.Upserts = []*store.Record{expected}
	batch.Message = []byte{5, 6, 7}
	require.NoError(t, s.Commit(ctx, batch))

	actual, err := s.Get(ctx, expected.Address)
	require.NoError(t, err)
	assertEquivalentRecords(t, expected, actual)
	assert.False(t, actual.UpdatedAt.IsZero())

	commit, err := s.GetCommit(ctx, "sig1")
	require.NoError(t, err)
	assert.Equal(t, batch.Id, commit.Id)
	assert.Equal(t, "sig1", commit.Signature)
	assert.Equal(t, []string{expected.Address}, commit.Accounts)
	assert.Equal(t, []byte{5, 6, 7}, commit.Message)

	// Returned records are copies
	actual.Data[0] = 0xff
	again, err := s.Get(ctx, expected.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 1, again.Data[0])
}

func testUpdateAndDelete(t *testing.T, s store.Store) {
	ctx := context.Background()

	owner := newKey(t)
	first := &store.Record{Address: newKey(t), Owner: owner, Lamports: 10}
	second := &store.Record{Address: newKey(t), Owner: owner, Lamports: 20, Data: make([]byte, 165)}

	batch := store.NewBatch("create")
	batch.Upserts = []*store.Record{first, second}
	require.NoError(t, s.Commit(ctx, batch))

	updated := first.Clone()
	updated.Lamports = 30
	updated.Data = []byte{9}

	batch = store.NewBatch("update")
	batch.Upserts = []*store.Record{updated}
	batch.Deletes = []string{second.Address}
	require.NoError(t, s.Commit(ctx, batch))

	actual, err := s.Get(ctx, first.Address)
	require.NoError(t, err)
	assertEquivalentRecords(t, updated, actual)

	_, err = s.Get(ctx, second.Address)
	assert.Equal(t, store.ErrAccountNotFound, err)

	commit, err := s.GetCommit(ctx, "update")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{first.Address, second.Address}, commit.Accounts)
	assert.Empty(t, commit.Message)

	// Deleting an account that doesn't exist is a no-op
	batch = store.NewBatch("delete-again")
	batch.Deletes = []string{second.Address}
	require.NoError(t, s.Commit(ctx, batch))
}

func testGetAllByOwner(t *testing.T, s store.Store) {
	ctx := context.Background()

	owner := newKey(t)
	other := newKey(t)

	_, err := s.GetAllByOwner(ctx, owner)
	assert.Equal(t, store.ErrAccountNotFound, err)

	var records []*store.Record
	for i := 0; i < 5; i++ {
		records = append(records, &store.Record{Address: newKey(t), Owner: owner, Lamports: uint64(i + 1)})
	}
	records = append(records, &store.Record{Address: newKey(t), Owner: other, Lamports: 1})

	batch := store.NewBatch("owners")
	batch.Upserts = records
	require.NoError(t, s.Commit(ctx, batch))

	actual, err := s.GetAllByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, actual, 5)
	for i := 1; i < len(actual); i++ {
		assert.True(t, actual[i-1].Address < actual[i].Address)
	}
	for _, record := range actual {
		assert.Equal(t, owner, record.Owner)
	}

	actual, err = s.GetAllByOwner(ctx, other)
	require.NoError(t, err)
	require.Len(t, actual, 1)
	assertEquivalentRecords(t, records[5], actual[0])
}

func testGetAllByOwnerMixedCase(t *testing.T, s store.Store) {
	ctx := context.Background()

	owner := newKey(t)
	upper := newKeyWithFirstChar(t, func(c byte) bool { return c >= 'A' && c <= 'Z' })
	lower := newKeyWithFirstChar(t, func(c byte) bool { return c >= 'a' && c <= 'z' })
	digit := newKeyWithFirstChar(t, func(c byte) bool { return c >= '1' && c <= '9' })

	batch := store.NewBatch("mixed-case")
	batch.Upserts = []*store.Record{
		{Address: lower, Owner: owner, Lamports: 1},
		{Address: upper, Owner: owner, Lamports: 1},
		{Address: digit, Owner: owner, Lamports: 1},
	}
	require.NoError(t, s.Commit(ctx, batch))

	actual, err := s.GetAllByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, actual, 3)

	// Byte order: digits, then upper case, then lower case.
	assert.Equal(t, digit, actual[0].Address)
	assert.Equal(t, upper, actual[1].Address)
	assert.Equal(t, lower, actual[2].Address)
}

func testDuplicateCommit(t *testing.T, s store.Store) {
	ctx := context.Background()

	record := &store.Record{Address: newKey(t), Owner: newKey(t), Lamports: 1}

	batch := store.NewBatch("duplicate")
	batch.Upserts = []*store.Record{record}
	require.NoError(t, s.Commit(ctx, batch))

	changed := record.Clone()
	changed.Lamports = 2

	batch = store.NewBatch("duplicate")
	batch.Upserts = []*store.Record{changed}
	assert.Equal(t, store.ErrCommitExists, s.Commit(ctx, batch))

	// Nothing from the rejected batch was applied
	actual, err := s.Get(ctx, record.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 1, actual.Lamports)
}

func testInvalidBatch(t *testing.T, s store.Store) {
	ctx := context.Background()

	valid := &store.Record{Address: newKey(t), Owner: newKey(t), Lamports: 1}

	for _, batch := range []*store.Batch{
		{Signature: "no-id", Upserts: []*store.Record{valid}},
		withUpserts(store.NewBatch(""), valid),
		withUpserts(store.NewBatch("bad-address"), valid, &store.Record{Address: "invalid", Owner: valid.Owner, Lamports: 1}),
		withUpserts(store.NewBatch("no-lamports"), valid, &store.Record{Address: newKey(t), Owner: valid.Owner}),
		withUpserts(store.NewBatch("duplicated"), valid, valid),
	} {
		assert.Error(t, s.Commit(ctx, batch))
	}

	_, err := s.Get(ctx, valid.Address)
	assert.Equal(t, store.ErrAccountNotFound, err)
}

func withUpserts(batch *store.Batch, records ...*store.Record) *store.Batch {
	batch.Upserts = records
	return batch
}

func assertEquivalentRecords(t *testing.T, expected, actual *store.Record) {
	assert.Equal(t, expected.Address, actual.Address)
	assert.Equal(t, expected.Owner, actual.Owner)
	assert.Equal(t, expected.Lamports, actual.Lamports)
	assert.Equal(t, len(expected.Data), len(actual.Data))
	if len(expected.Data) > 0 {
		assert.Equal(t, expected.Data, actual.Data)
	}
	assert.Equal(t, expected.Executable, actual.Executable)
}

func newKey(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func newKeyWithFirstChar(t *testing.T, match func(c byte) bool) string {
	for i := 0; i < 100_000; i++ {
		key := newKey(t)
		if match(key[0]) {
			return key
		}
	}
	require.FailNow(t, "no key found with the requested first character")
	return ""
}
