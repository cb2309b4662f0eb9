package blobstore

import "testing"

func TestPutGetRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	data := []byte("the quick brown fox jumps over the lazy dog")
	hash, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}
	if hash != Hash(data) {
		t.Errorf("Put returned hash %q, want %q", hash, Hash(data))
	}

	got, err := s.Get(hash)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(data) {
		t.Errorf("Get = %q, want %q", got, data)
	}
}

func TestGetHitsHotCache(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	data := []byte("cached content")
	hash, err := s.Put(data)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := s.hot.Get(hash); !ok {
		t.Error("Put should populate the hot cache")
	}
	if _, err := s.Get(hash); err != nil {
		t.Fatal(err)
	}
}

func TestGetUnknownHash(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Get(Hash([]byte("never stored"))); err == nil {
		t.Error("expected an error resolving a hash that was never stored")
	}
}

func TestIngestCommitsOnlyWhenComplete(t *testing.T) {
	in := NewIngest(11)
	in.Write([]byte("world"), 6)
	if _, ok := in.Done(); ok {
		t.Fatal("ingest should not be done with a gap at the start")
	}
	in.Write([]byte("hello "), 0)

	data, ok := in.Done()
	if !ok {
		t.Fatal("ingest should be done once every byte has arrived")
	}
	if string(data) != "hello world" {
		t.Errorf("coalesced ingest = %q, want %q", data, "hello world")
	}

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	hash, err := in.Commit(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(hash)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Errorf("committed blob = %q, want %q", got, "hello world")
	}
}

func TestIngestCommitIncompleteFails(t *testing.T) {
	in := NewIngest(100)
	in.Write([]byte("partial"), 0)

	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := in.Commit(s); err == nil {
		t.Error("expected Commit to fail on an incomplete ingest")
	}
}
