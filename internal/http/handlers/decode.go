package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/referral-backend/internal/utils"
)

var (
	errEmptyBody    = errors.New("request body is required")
	errTrailingData = errors.New("request body must contain a single JSON value")
)

// decodeBody strictly decodes the JSON request body into dst: unknown fields,
// mistyped values and trailing data are rejected. It writes the 400 (or 413)
// response itself and reports whether decoding succeeded.
func decodeBody(c *gin.Context, dst any) bool {
	err := decodeStrict(c.Request.Body, dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	fail(c, http.StatusBadRequest, ErrCodeValidation, describeDecode(err))
	return false
}

func decodeStrict(r io.Reader, dst any) error {
	if r == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errTrailingData
	}
	return nil
}

// describeDecode turns decoder errors into client-facing messages.
func describeDecode(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.ErrUnexpectedEOF):
		return "malformed JSON: unexpected end of body"
	case errors.As(err, &typeErr):
		if typeErr.Field == "" {
			return fmt.Sprintf("request body must be %s", jsonKind(typeErr.Type.Kind().String()))
		}
		return fmt.Sprintf("%s must be %s", typeErr.Field, jsonKind(typeErr.Type.Kind().String()))
	default:
		// json: unknown field "x", errEmptyBody, errTrailingData, time parse errors
		msg := err.Error()
		if len(msg) > 6 && msg[:6] == "json: " {
			msg = msg[6:]
		}
		return msg
	}
}

func jsonKind(goKind string) string {
	switch goKind {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "an integer"
	case "float32", "float64":
		return "a number"
	case "string":
		return "a string"
	case "bool":
		return "a boolean"
	case "slice", "array":
		return "a list"
	case "struct", "map":
		return "an object"
	default:
		return "a " + goKind
	}
}

// bindQuery maps query parameters onto dst using its form tags. Validation
// is left to the services layer. On failure it writes a 400 and returns false.
func bindQuery(c *gin.Context, dst any) bool {
	if err := binding.MapFormWithTag(dst, c.Request.URL.Query(), "form"); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "invalid query parameter: "+err.Error())
		return false
	}
	return true
}

// pathID parses the :id segment. Non-numeric or zero ids are a 400.
func pathID(c *gin.Context) (uint, bool) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		fail(c, http.StatusBadRequest, ErrCodeValidation, "id must be a positive integer")
	}
	return id, ok
}
