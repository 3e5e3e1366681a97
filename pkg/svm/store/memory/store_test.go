package memory

import (
	"testing"

	"github.com/code-payments/code-escrow/pkg/svm/store/tests"
)

func TestAccountMemoryStore(t *testing.T) {
	testStore := New()
	teardown := func() {
		testStore.(*memoryStore).reset()
	}
	tests.RunTests(t, testStore, teardown)
}
