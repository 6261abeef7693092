package config

import (
	"context"
	"log"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Storage is the shared object storage client. Bucket holds document PDFs,
// signature images and extracted protocol images.
var (
	Storage       *minio.Client
	StorageBucket string
)

func InitStorage() {
	endpoint := os.Getenv("STORAGE_ENDPOINT")
	accessKey := os.Getenv("STORAGE_ACCESS_KEY")
	secretKey := os.Getenv("STORAGE_SECRET_KEY")
	useSSL := os.Getenv("STORAGE_USE_SSL") == "true"

	StorageBucket = os.Getenv("STORAGE_BUCKET")
	if StorageBucket == "" {
		StorageBucket = "ethics-documents"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		log.Fatal("Failed to connect to object storage:", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, StorageBucket)
	if err != nil {
		log.Fatal("Failed to check storage bucket:", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, StorageBucket, minio.MakeBucketOptions{}); err != nil {
			log.Fatal("Failed to create storage bucket:", err)
		}
	}

	Storage = client
	log.Println("Object storage connected successfully")
}
