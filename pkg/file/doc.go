// Package file provides object storage for generated artifacts with
// local filesystem and S3 backends.
//
// Export ZIPs and other generated files are written through the Storage
// interface, keyed by slash-separated relative paths. Both backends
// validate keys against traversal and return public URLs suitable for
// handing to tenants.
//
// Local backend for development and single-node deployments:
//
//	storage, err := file.NewLocalStorage("./var/files", "/files/")
//	if err != nil {
//		log.Fatal(err)
//	}
//	obj, err := storage.Put(ctx, "exports/acme/report.zip", r, "application/zip")
//
// S3 backend for production:
//
//	storage, err := file.NewS3Storage(ctx, file.S3Config{
//		Bucket: "fieldvine-exports",
//		Region: "us-east-1",
//	})
package file
