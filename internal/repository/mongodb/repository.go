package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

const (
	animalsCollection     = "animals"
	milkRecordsCollection = "milk_records"
	predictionsCollection = "predictions"
	metricsCollection     = "model_metrics"
)

// MongoDBRepository stores herd data, prediction audit rows and model metrics.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository connects, pings and ensures the query indexes exist.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{client: client, dbName: dbName}
	if err := r.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection(milkRecordsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "animal_id", Value: 1}, {Key: "date", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create milk_records index: %w", err)
	}

	_, err = r.collection(predictionsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "animal_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create predictions index: %w", err)
	}
	return nil
}

// GetAnimal fetches one animal by id.
func (r *MongoDBRepository) GetAnimal(ctx context.Context, animalID string) (*models.Animal, error) {
	var animal models.Animal
	err := r.collection(animalsCollection).FindOne(ctx, bson.M{"_id": animalID}).Decode(&animal)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find animal: %w", err)
	}
	return &animal, nil
}

// GetMilkRecords returns the animal's records dated on or after since, newest first.
func (r *MongoDBRepository) GetMilkRecords(ctx context.Context, animalID string, since time.Time) ([]models.MilkRecord, error) {
	filter := bson.M{
		"animal_id": animalID,
		"date":      bson.M{"$gte": since},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})

	cursor, err := r.collection(milkRecordsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query milk records: %w", err)
	}

	records := []models.MilkRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode milk records: %w", err)
	}
	return records, nil
}

// ListActiveAnimalIDs returns the ids of animals that have not been retired.
func (r *MongoDBRepository) ListActiveAnimalIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection(animalsCollection).Find(ctx, bson.M{"is_active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query active animals: %w", err)
	}

	var rows []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode active animals: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// InsertPrediction appends a prediction audit row.
func (r *MongoDBRepository) InsertPrediction(ctx context.Context, result models.PredictionResult) error {
	if _, err := r.collection(predictionsCollection).InsertOne(ctx, result); err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// QueryPredictions returns the newest predictions for an animal.
func (r *MongoDBRepository) QueryPredictions(ctx context.Context, animalID string, limit int) ([]models.PredictionResult, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection(predictionsCollection).Find(ctx, bson.M{"animal_id": animalID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}

	results := []models.PredictionResult{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode predictions: %w", err)
	}
	return results, nil
}

// QueryModelMetrics returns every stored model metric, newest first.
func (r *MongoDBRepository) QueryModelMetrics(ctx context.Context) ([]models.ModelMetric, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection(metricsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query model metrics: %w", err)
	}

	metrics := []models.ModelMetric{}
	if err := cursor.All(ctx, &metrics); err != nil {
		return nil, fmt.Errorf("failed to decode model metrics: %w", err)
	}
	return metrics, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
