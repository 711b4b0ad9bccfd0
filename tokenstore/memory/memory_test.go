package memory_test

import (
	"testing"

	"github.com/jrsteele09/elearn-web/tokenstore/memory"
	"github.com/jrsteele09/elearn-web/tokenstore/storagetest"
)

func TestStorage(t *testing.T) {
	storagetest.Run(t, memory.New())
}
