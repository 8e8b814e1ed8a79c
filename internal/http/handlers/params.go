package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/arcpp/proteome-backend/internal/pkg/errors"
)

// queryList reads a list-valued query parameter. It accepts a JSON array
// (`["PXD1","PXD2"]`, `[2,3]`), repeated keys, or comma-separated values.
// Array elements may be strings or numbers; both come back as strings.
func queryList(c *gin.Context, key string) ([]string, error) {
	raw := c.QueryArray(key)
	out := []string{}
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if strings.HasPrefix(v, "[") {
			var items []any
			if err := json.Unmarshal([]byte(v), &items); err != nil {
				return nil, fmt.Errorf("%s: malformed JSON array: %w", key, pkgerrors.ErrInvalidArgument)
			}
			for _, it := range items {
				switch x := it.(type) {
				case string:
					if x = strings.TrimSpace(x); x != "" {
						out = append(out, x)
					}
				case float64:
					out = append(out, strconv.FormatFloat(x, 'f', -1, 64))
				default:
					return nil, fmt.Errorf("%s: unsupported element %v: %w", key, it, pkgerrors.ErrInvalidArgument)
				}
			}
			continue
		}
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out, nil
}

func queryInts(c *gin.Context, key string) ([]int, error) {
	vals, err := queryList(c, key)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer: %w", key, v, pkgerrors.ErrInvalidArgument)
		}
		out = append(out, n)
	}
	return out, nil
}

// queryInt parses an optional integer; unparseable values fall back to def.
func queryInt(c *gin.Context, key string, def int) int {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
