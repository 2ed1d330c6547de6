package handler

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/storefront/internal/core/service"
)

// JSONCodec carries gRPC messages as JSON. Clients select it with
// grpc.CallContentSubtype(JSONCodec{}.Name()).
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

type ConvertBasketRequest struct {
	BasketID          string `json:"basket_id"`
	BillingAddressID  string `json:"billing_address_id"`
	ShippingAddressID string `json:"shipping_address_id"`
	UserID            string `json:"user_id"`
}

type ConvertBasketResponse struct {
	OrderID   string `json:"order_id"`
	LineCount int    `json:"line_count"`
}

type MergeBasketRequest struct {
	AnonymousBasketID string `json:"anonymous_basket_id"`
	UserID            string `json:"user_id"`
}

type MergeBasketResponse struct {
	Success bool `json:"success"`
}

// CheckoutServer is the gRPC face of the basket workflows.
type CheckoutServer interface {
	ConvertBasket(ctx context.Context, req *ConvertBasketRequest) (*ConvertBasketResponse, error)
	MergeBasket(ctx context.Context, req *MergeBasketRequest) (*MergeBasketResponse, error)
}

const checkoutServiceName = "storefront.v1.CheckoutService"

var CheckoutServiceDesc = grpc.ServiceDesc{
	ServiceName: checkoutServiceName,
	HandlerType: (*CheckoutServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ConvertBasket", Handler: convertBasketHandler},
		{MethodName: "MergeBasket", Handler: mergeBasketHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/checkout.proto",
}

func convertBasketHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ConvertBasketRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CheckoutServer).ConvertBasket(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + checkoutServiceName + "/ConvertBasket"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CheckoutServer).ConvertBasket(ctx, req.(*ConvertBasketRequest))
	})
}

func mergeBasketHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(MergeBasketRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CheckoutServer).MergeBasket(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + checkoutServiceName + "/MergeBasket"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CheckoutServer).MergeBasket(ctx, req.(*MergeBasketRequest))
	})
}

type GRPCHandler struct {
	checkout *service.CheckoutService
	baskets  *service.BasketService
}

func NewGRPCHandler(checkout *service.CheckoutService, baskets *service.BasketService) *GRPCHandler {
	return &GRPCHandler{checkout: checkout, baskets: baskets}
}

// Register mounts the checkout service on s.
func (h *GRPCHandler) Register(s *grpc.Server) {
	s.RegisterService(&CheckoutServiceDesc, h)
}

func (h *GRPCHandler) ConvertBasket(ctx context.Context, req *ConvertBasketRequest) (*ConvertBasketResponse, error) {
	if req.BasketID == "" || req.BillingAddressID == "" || req.ShippingAddressID == "" {
		return nil, status.Error(codes.InvalidArgument, "basket_id, billing_address_id and shipping_address_id are required")
	}
	order, err := h.checkout.Convert(ctx, service.ConvertInput{
		BasketID:          req.BasketID,
		BillingAddressID:  req.BillingAddressID,
		ShippingAddressID: req.ShippingAddressID,
		UserID:            req.UserID,
	})
	if err != nil {
		return nil, grpcError(err)
	}
	return &ConvertBasketResponse{OrderID: order.ID, LineCount: len(order.Lines)}, nil
}

func (h *GRPCHandler) MergeBasket(ctx context.Context, req *MergeBasketRequest) (*MergeBasketResponse, error) {
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if err := h.baskets.Merge(ctx, req.AnonymousBasketID, req.UserID); err != nil {
		return nil, grpcError(err)
	}
	return &MergeBasketResponse{Success: true}, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, service.ErrBasketNotFound),
		errors.Is(err, service.ErrAddressNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrBasketNotOpen),
		errors.Is(err, service.ErrCheckoutInProgress):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrBasketHasNoOwner),
		errors.Is(err, service.ErrBasketEmpty),
		errors.Is(err, service.ErrAddressNotOwned),
		errors.Is(err, service.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}
