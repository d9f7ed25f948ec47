package models

import "testing"

func TestDecodeDocuments(t *testing.T) {
	wrapped := []byte(`{"data":[{"id":1,"filename":"a.pdf","size_mb":1.5}]}`)
	docs, err := DecodeDocuments(wrapped)
	if err != nil {
		t.Fatalf("wrapped: %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != "a.pdf" || docs[0].SizeMB != 1.5 {
		t.Errorf("unexpected wrapped decode: %+v", docs)
	}

	bare := []byte("  \n[{\"id\":2,\"filename\":\"b.txt\"},{\"id\":3,\"filename\":\"c.txt\"}]")
	docs, err = DecodeDocuments(bare)
	if err != nil {
		t.Fatalf("bare: %v", err)
	}
	if len(docs) != 2 || docs[1].ID != 3 {
		t.Errorf("unexpected bare decode: %+v", docs)
	}

	if _, err := DecodeDocuments([]byte("not json")); err == nil {
		t.Error("expected error for malformed body")
	}
}
