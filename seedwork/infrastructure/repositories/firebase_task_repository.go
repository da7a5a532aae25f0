package repositories

import (
	"context"
	"fmt"

	"github.com/sesamyab/audiopipeline/seedwork/domain/entities"
	"github.com/sesamyab/audiopipeline/seedwork/infrastructure/firebase"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const taskCollection = "tasks"

// FirebaseTaskRepository implements TaskRepository on top of Firestore,
// mirroring the teacher's dual gorm/firebase repository pattern (the
// container picks a backing store by configuration, same as
// UserRepositoryType does for the user module).
type FirebaseTaskRepository struct {
	client *firestore.Client
}

// NewFirebaseTaskRepository creates a new Firestore-backed task repository.
func NewFirebaseTaskRepository(fb *firebase.Client) (*FirebaseTaskRepository, error) {
	client, err := fb.Firestore(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}
	return &FirebaseTaskRepository{client: client}, nil
}

func (r *FirebaseTaskRepository) Create(ctx context.Context, task *entities.Task) error {
	_, err := r.client.Collection(taskCollection).Doc(task.GetID()).Set(ctx, task)
	return err
}

func (r *FirebaseTaskRepository) FindByID(ctx context.Context, id string) (*entities.Task, error) {
	doc, err := r.client.Collection(taskCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("task not found: %s", id)
		}
		return nil, err
	}
	var task entities.Task
	if err := doc.DataTo(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *FirebaseTaskRepository) UpdateStatus(ctx context.Context, id string, status entities.TaskStatus, message string, result map[string]interface{}) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.client.Collection(taskCollection).Doc(id)
		snap, err := tx.Get(ref)
		if err != nil {
			return fmt.Errorf("task not found: %s", id)
		}
		var task entities.Task
		if err := snap.DataTo(&task); err != nil {
			return err
		}
		if !task.SetStatus(status) {
			return fmt.Errorf("invalid task status transition: %s -> %s", task.Status, status)
		}
		if message != "" {
			task.Message = message
		}
		if result != nil {
			task.SetResult(result)
		}
		return tx.Set(ref, &task)
	})
}

func (r *FirebaseTaskRepository) UpdateProgress(ctx context.Context, id string, step string, percent int, message string) error {
	_, err := r.client.Collection(taskCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "Step", Value: step},
		{Path: "Progress", Value: percent},
		{Path: "Message", Value: message},
	})
	return err
}
