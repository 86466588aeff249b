package httpapi

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// maxRequestBody caps request bodies for both encodings. A visitor form
// carrying a signature payload is the largest message, well under 1 MiB.
const maxRequestBody = 1 << 20

const protobufType = "application/x-protobuf"

// isProtobuf returns true if the request body is a protobuf message.
func isProtobuf(r *http.Request) bool {
	return isProtoType(r.Header.Get("Content-Type"))
}

// wantsProtobuf reports whether the response should be protobuf: either the
// body was, or the client asked for it.
func wantsProtobuf(r *http.Request) bool {
	return isProtobuf(r) || isProtoType(r.Header.Get("Accept"))
}

func isProtoType(v string) bool {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return false
	}
	return mt == protobufType ||
		mt == "application/protobuf" ||
		mt == "application/octet-stream"
}

// readProto reads the request body and unmarshals it into msg.
func readProto(r *http.Request, msg proto.Message) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		return err
	}
	return proto.Unmarshal(body, msg)
}

// writeProto marshals msg and writes it with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, msg proto.Message) {
	data, err := proto.Marshal(msg)
	if err != nil {
		// Fall back to a plain-text error if marshalling fails.
		http.Error(w, "proto marshal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", protobufType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// decodeBody reads a JSON object, or a google.protobuf.Struct carrying the
// same fields, into dst.
func decodeBody(r *http.Request, dst any) error {
	if isProtobuf(r) {
		var st structpb.Struct
		if err := readProto(r, &st); err != nil {
			return errors.Wrap(err, "protobuf body")
		}
		buf, err := json.Marshal(st.AsMap())
		if err != nil {
			return errors.WithStack(err)
		}
		return errors.Wrap(json.Unmarshal(buf, dst), "protobuf body")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return errors.Wrap(dec.Decode(dst), "json body")
}

// toStruct converts any JSON-encodable object into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, errors.Wrap(err, "response is not an object")
	}
	return structpb.NewStruct(m)
}
