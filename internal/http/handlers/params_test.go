package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	pkgerrors "github.com/arcpp/proteome-backend/internal/pkg/errors"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func contextFor(target string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestQueryList(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		target string
		want   []string
	}{
		{"absent", "/x", []string{}},
		{"json strings", "/x?d=%5B%22PXD000001%22%2C%22PXD000002%22%5D", []string{"PXD000001", "PXD000002"}},
		{"json numbers", "/x?d=%5B2%2C3%5D", []string{"2", "3"}},
		{"repeated", "/x?d=PXD000001&d=PXD000002", []string{"PXD000001", "PXD000002"}},
		{"comma separated", "/x?d=PXD000001,%20PXD000002,", []string{"PXD000001", "PXD000002"}},
		{"blank entries", "/x?d=&d=%20", []string{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := queryList(contextFor(tc.target), "d")
			if err != nil {
				t.Fatalf("queryList: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("queryList mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryListRejectsMalformedJSON(t *testing.T) {
	t.Parallel()
	_, err := queryList(contextFor("/x?d=%5B%22PXD"), "d")
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	_, err = queryList(contextFor("/x?d=%5B%7B%7D%5D"), "d")
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("object element: expected ErrInvalidArgument, got %v", err)
	}
}

func TestQueryInts(t *testing.T) {
	t.Parallel()
	got, err := queryInts(contextFor("/x?o=%5B0%2C2%5D&o=3"), "o")
	if err != nil {
		t.Fatalf("queryInts: %v", err)
	}
	if diff := cmp.Diff([]int{0, 2, 3}, got); diff != "" {
		t.Fatalf("queryInts mismatch (-want +got):\n%s", diff)
	}
	if _, err := queryInts(contextFor("/x?o=two"), "o"); !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestQueryIntFallsBack(t *testing.T) {
	t.Parallel()
	c := contextFor("/x?limit=abc&offset=10")
	if got := queryInt(c, "limit", 25); got != 25 {
		t.Fatalf("limit: got=%d want=25", got)
	}
	if got := queryInt(c, "offset", 0); got != 10 {
		t.Fatalf("offset: got=%d want=10", got)
	}
}
