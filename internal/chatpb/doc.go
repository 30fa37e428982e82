// Package chatpb defines the wire messages and gRPC service bindings for the
// groupchat.v1 Discovery and Peer services.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// "json" content-subtype; protobuf well-known types (emptypb) go through
// protojson. Stubs and descriptors follow the shape of protoc-gen-go-grpc
// output so the services plug into a regular *grpc.Server.
package chatpb
