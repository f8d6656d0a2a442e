package extension

import (
	"fmt"

	"github.com/jhump/protoreflect/v2/protobuilder"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Capability is one invokable method on an extension: a field's
// `@field_resolver`/`@selection_set_resolver` directive names an extension ID
// plus (implicitly) the field it's attached to, and that pair is built into a
// one-off gRPC method descriptor here — there's no .proto file to compile
// against, since an extension is an opaque capability invoked over whatever
// argument shape its directive happened to carry.
//
// Grounded on the teacher's protoreg builder (internal/protoreg/buildmethods.go),
// which builds FieldDescriptor/MethodDescriptor trees with protobuilder for a
// GraphQL schema's resolvers/loaders. Extension requests don't have a typed
// GraphQL schema of their own to mirror, so every argument becomes a string
// field on the request message (its GraphQL value JSON-encoded into it) and
// the response is a single "value" string field, JSON-decoded back out by the
// caller.
type Capability struct {
	ExtensionID string
	FullMethod  string // e.g. "/grafbase.extension.v1.Capability/field_name"
	Method      protoreflect.MethodDescriptor
}

// BuildCapability constructs the descriptor for invoking extensionID's
// fieldName capability with the given ordered argument names.
func BuildCapability(extensionID, fieldName string, argNames []string) (*Capability, error) {
	pkg := protoreflect.FullName("grafbase.extension.v1")
	fb := protobuilder.NewFile(extensionID + "/" + fieldName + ".proto")
	fb.SetPackageName(pkg)
	fb.SetSyntax(protoreflect.Proto3)

	reqMB := protobuilder.NewMessage(protoreflect.Name("Request"))
	reqFields := make([]*protobuilder.FieldBuilder, 0, len(argNames))
	for i, name := range argNames {
		field := protobuilder.NewField(protoreflect.Name(sanitizeFieldName(name)), protobuilder.FieldTypeScalar(protoreflect.StringKind))
		field.SetNumber(protoreflect.FieldNumber(i + 1))
		reqMB.AddField(field)
		reqFields = append(reqFields, field)
	}
	fb.AddMessage(reqMB)

	respMB := protobuilder.NewMessage(protoreflect.Name("Response"))
	valueField := protobuilder.NewField(protoreflect.Name("value"), protobuilder.FieldTypeScalar(protoreflect.StringKind))
	valueField.SetNumber(protoreflect.FieldNumber(1))
	respMB.AddField(valueField)
	fb.AddMessage(respMB)

	methodName := protoreflect.Name(sanitizeFieldName(fieldName))
	svc := protobuilder.NewService("Capability")
	method := protobuilder.NewMethod(methodName, protobuilder.RpcTypeMessage(reqMB, false), protobuilder.RpcTypeMessage(respMB, false))
	svc.AddMethod(method)
	fb.AddService(svc)

	built, err := fb.Build()
	if err != nil {
		return nil, fmt.Errorf("extension: building descriptor for %s.%s: %w", extensionID, fieldName, err)
	}

	svcDesc := built.Services().ByName("Capability")
	methodDesc := svcDesc.Methods().ByName(methodName)

	return &Capability{
		ExtensionID: extensionID,
		FullMethod:  fmt.Sprintf("/%s.Capability/%s", pkg, methodName),
		Method:      methodDesc,
	}, nil
}

// sanitizeFieldName maps a GraphQL name (camelCase, may start with `_`) to a
// valid proto3 field/method identifier. GraphQL names are already restricted
// to [_A-Za-z][_0-9A-Za-z]*, which is also valid proto3 syntax, so this is
// the identity function kept as a named seam in case a future extension
// argument name needs escaping.
func sanitizeFieldName(name string) string { return name }
