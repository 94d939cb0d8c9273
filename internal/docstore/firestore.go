package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/Zachkp/portfolio/internal/contact"
)

// Firestore writes submissions as new documents with a server-assigned
// createdAt.
type Firestore struct {
	client *firestore.Client
}

// OpenFirestore initializes the Firebase app for projectID. An empty
// credentialsFile falls back to application default credentials.
func OpenFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) Create(ctx context.Context, collection string, doc contact.Document) error {
	if _, _, err := f.client.Collection(collection).Add(ctx, firestoreFields(doc)); err != nil {
		return fmt.Errorf("firestore add to %s: %w", collection, err)
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

func firestoreFields(doc contact.Document) map[string]interface{} {
	return map[string]interface{}{
		"name":      doc.Name,
		"email":     doc.Email,
		"message":   doc.Message,
		"userAgent": doc.UserAgent,
		"createdAt": firestore.ServerTimestamp,
	}
}
