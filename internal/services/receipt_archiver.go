package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"restopos/internal/models"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectUploader is the part of *minio.Client the archiver needs.
type ObjectUploader interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

// ReceiptArchiver stores a copy of every completed order.
type ReceiptArchiver interface {
	Archive(ctx context.Context, order *models.Order) error
}

func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

type minioReceiptArchiver struct {
	client ObjectUploader
	bucket string

	mu    sync.Mutex
	ready bool
}

func NewReceiptArchiver(client ObjectUploader, bucket string) ReceiptArchiver {
	return &minioReceiptArchiver{client: client, bucket: bucket}
}

type receiptLine struct {
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	UnitPrice models.Money `json:"unit_price"`
	Subtotal  models.Money `json:"subtotal"`
	Modifiers []string     `json:"modifiers,omitempty"`
}

// Receipt is the archived JSON document.
type Receipt struct {
	OrderID       uuid.UUID     `json:"order_id"`
	Code          string        `json:"code"`
	TableID       uuid.UUID     `json:"table_id"`
	StaffID       uuid.UUID     `json:"staff_id"`
	GuestCount    int           `json:"guest_count"`
	Lines         []receiptLine `json:"lines"`
	Subtotal      models.Money  `json:"subtotal"`
	Discount      models.Money  `json:"discount"`
	Tax           models.Money  `json:"tax"`
	ServiceCharge models.Money  `json:"service_charge"`
	Total         models.Money  `json:"total"`
	CompletedAt   time.Time     `json:"completed_at"`
}

func NewReceipt(o *models.Order) Receipt {
	r := Receipt{
		OrderID:       o.ID,
		Code:          o.Code,
		TableID:       o.TableID,
		StaffID:       o.StaffID,
		GuestCount:    o.GuestCount,
		Subtotal:      o.Subtotal,
		Discount:      o.DiscountAmount,
		Tax:           o.TaxAmount,
		ServiceCharge: o.ServiceCharge,
		Total:         o.TotalAmount,
	}
	if o.CompletedAt != nil {
		r.CompletedAt = *o.CompletedAt
	}
	for _, item := range o.Items {
		if item.Status == models.ItemStatusCancelled {
			continue
		}
		line := receiptLine{Name: item.ProductName, Quantity: item.Quantity, UnitPrice: item.UnitPrice, Subtotal: item.Subtotal}
		for _, m := range item.Modifiers {
			line.Modifiers = append(line.Modifiers, m.Name)
		}
		r.Lines = append(r.Lines, line)
	}
	return r
}

// ReceiptObjectName lays receipts out by completion day.
func ReceiptObjectName(o *models.Order) string {
	at := o.UpdatedAt
	if o.CompletedAt != nil {
		at = *o.CompletedAt
	}
	return fmt.Sprintf("%s/%s.json", at.Format("2006/01/02"), o.Code)
}

// ensureBucket creates the bucket on first use. Failures are retried on the
// next call.
func (a *minioReceiptArchiver) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}
	found, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !found {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	a.ready = true
	return nil
}

func (a *minioReceiptArchiver) Archive(ctx context.Context, order *models.Order) error {
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure receipt bucket: %w", err)
	}
	body, err := json.Marshal(NewReceipt(order))
	if err != nil {
		return fmt.Errorf("failed to encode receipt: %w", err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, ReceiptObjectName(order), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload receipt %s: %w", order.Code, err)
	}
	return nil
}
