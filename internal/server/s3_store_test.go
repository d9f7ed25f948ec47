package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MockS3Client implements S3ClientAPI
type MockS3Client struct {
	Objects map[string][]byte
}

func (m *MockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(params.Body)
	m.Objects[*params.Key] = buf.Bytes()
	return &s3.PutObjectOutput{}, nil
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if content, ok := m.Objects[*params.Key]; ok {
		return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(content))}, nil
	}
	return nil, errors.New("NoSuchKey")
}

func (m *MockS3Client) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(m.Objects, *params.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3BlobStore(t *testing.T) {
	ctx := context.Background()
	mockClient := &MockS3Client{Objects: make(map[string][]byte)}
	store := &S3BlobStore{Client: mockClient, Bucket: "test-bucket"}

	content := []byte("syllabus text")
	if err := store.Save(ctx, "1", content); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if string(mockClient.Objects["documents/1"]) != string(content) {
		t.Error("Content not saved under documents/ prefix")
	}

	got, err := store.Get(ctx, "1")
	if err != nil || string(got) != string(content) {
		t.Errorf("Get mismatch: %q %v", got, err)
	}

	if err := store.Delete(ctx, "1"); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "1"); err == nil {
		t.Error("expected error after delete")
	}
}

func TestDocumentsOverS3(t *testing.T) {
	ctx := context.Background()
	mockClient := &MockS3Client{Objects: make(map[string][]byte)}
	s, err := NewStorage(t.TempDir(), &S3BlobStore{Client: mockClient, Bucket: "b"})
	if err != nil {
		t.Fatal(err)
	}
	doc, err := s.AddDocument(ctx, "a.txt", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	data, err := s.DocumentContent(ctx, doc.ID)
	if err != nil || string(data) != "hello" {
		t.Errorf("content %q %v", data, err)
	}
}
