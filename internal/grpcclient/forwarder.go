package grpcclient

import (
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Contrato del servicio forwarder:
//
//	service Forwarder { rpc SendData(DataRequest) returns (DataResponse); }
//	message DataRequest  { string device_id = 1; string payload = 2; }
//	message DataResponse { bool success = 1; }
const SendDataMethod = "/forwarder.Forwarder/SendData"

type descriptors struct {
	Request  protoreflect.MessageDescriptor
	Response protoreflect.MessageDescriptor
}

var forwarderDescriptors = sync.OnceValues(func() (descriptors, error) {
	str := descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum()
	boolean := descriptorpb.FieldDescriptorProto_TYPE_BOOL.Enum()
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()

	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("forwarder.proto"),
		Package: proto.String("forwarder"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("DataRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{Name: proto.String("device_id"), JsonName: proto.String("deviceId"), Number: proto.Int32(1), Type: str, Label: optional},
					{Name: proto.String("payload"), JsonName: proto.String("payload"), Number: proto.Int32(2), Type: str, Label: optional},
				},
			},
			{
				Name: proto.String("DataResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{Name: proto.String("success"), JsonName: proto.String("success"), Number: proto.Int32(1), Type: boolean, Label: optional},
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Forwarder"),
			Method: []*descriptorpb.MethodDescriptorProto{{
				Name:       proto.String("SendData"),
				InputType:  proto.String(".forwarder.DataRequest"),
				OutputType: proto.String(".forwarder.DataResponse"),
			}},
		}},
	}
	fd, err := protodesc.NewFile(fdp, new(protoregistry.Files))
	if err != nil {
		return descriptors{}, err
	}
	msgs := fd.Messages()
	return descriptors{
		Request:  msgs.ByName("DataRequest"),
		Response: msgs.ByName("DataResponse"),
	}, nil
})
