package testing

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/amirphl/utm-tracker/models"
	"github.com/amirphl/utm-tracker/utils"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUTMLink inserts a complete link record. Mutators run before the insert.
func (tf *TestFixtures) CreateTestUTMLink(ctx context.Context, mutators ...func(*models.UTMLink)) (*models.UTMLink, error) {
	n := rand.Intn(1_000_000)
	link := &models.UTMLink{
		ID:                 uuid.New(),
		Program:            "Academy",
		Channel:            "Affiliate",
		Platform:           "YouTube",
		Placement:          "Video Description",
		UTMSource:          "aff-yt",
		UTMMedium:          "video_description",
		UTMCampaign:        fmt.Sprintf("aff-academy-%d", n),
		FullURL:            fmt.Sprintf("https://academy.example.com/aff-landing?utm_campaign=aff-academy-%d", n),
		ShortURL:           fmt.Sprintf("https://tinyurl.com/t%d", n),
		Email:              utils.ToPtr(fmt.Sprintf("marketer.%d@example.com", n)),
		Source:             models.UTMLinkSourceIndividual,
		ProvisioningStatus: models.ProvisioningStatusComplete,
	}
	link.TrackingURL = "http://localhost:8080" + utils.TrackPath + "?id=" + link.ID.String()

	for _, m := range mutators {
		m(link)
	}

	if err := tf.DB.DB.WithContext(ctx).Create(link).Error; err != nil {
		return nil, fmt.Errorf("failed to create test utm link: %w", err)
	}
	return link, nil
}
