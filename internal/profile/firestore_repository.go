package profile

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type firestoreRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreRepository creates a Firestore-backed profile repository.
func NewFirestoreRepository(client *firestore.Client, collection string) Repository {
	if collection == "" {
		collection = "users"
	}
	return &firestoreRepository{client: client, collection: collection}
}

func (r *firestoreRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(id)
}

func decode(doc *firestore.DocumentSnapshot) (*Profile, error) {
	var p Profile
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	if p.ID == "" {
		p.ID = doc.Ref.ID
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	return &p, nil
}

func (r *firestoreRepository) Get(ctx context.Context, id string) (*Profile, error) {
	doc, err := r.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(doc)
}

func (r *firestoreRepository) Create(ctx context.Context, p *Profile) error {
	_, err := r.doc(p.ID).Create(ctx, p)
	if status.Code(err) == codes.AlreadyExists {
		return ErrConflict
	}
	return err
}

func (r *firestoreRepository) IncrementPoints(ctx context.Context, id string, delta int, at time.Time) (*Profile, error) {
	ref := r.doc(id)
	var updated *Profile

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		p, err := decode(doc)
		if err != nil {
			return err
		}

		p.TotalPoints += delta
		p.Level = LevelFor(p.TotalPoints)
		p.LastActive = at
		updated = p

		// level is derived from the total read in this transaction
		return tx.Update(ref, []firestore.Update{
			{Path: "totalPoints", Value: firestore.Increment(int64(delta))},
			{Path: "level", Value: p.Level},
			{Path: "lastActive", Value: at},
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *firestoreRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.doc(id).Update(ctx, []firestore.Update{{Path: "lastActive", Value: at}})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (r *firestoreRepository) AddBadges(ctx context.Context, id string, badges ...string) error {
	if len(badges) == 0 {
		return nil
	}
	values := make([]interface{}, len(badges))
	for i, b := range badges {
		values[i] = b
	}
	_, err := r.doc(id).Update(ctx, []firestore.Update{{Path: "badges", Value: firestore.ArrayUnion(values...)}})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (r *firestoreRepository) ListByPoints(ctx context.Context, limit int, after *Position) ([]Profile, error) {
	query := r.client.Collection(r.collection).
		OrderBy("totalPoints", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Limit(limit)
	switch {
	case after == nil:
	case after.ID == "":
		query = query.StartAfter(after.Points)
	default:
		query = query.StartAfter(after.Points, after.ID)
	}
	return collect(query.Documents(ctx))
}

func (r *firestoreRepository) ListByRole(ctx context.Context, role Role) ([]Profile, error) {
	return collect(r.client.Collection(r.collection).Where("role", "==", string(role)).Documents(ctx))
}

func collect(iter *firestore.DocumentIterator) ([]Profile, error) {
	defer iter.Stop()

	var out []Profile
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		p, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
