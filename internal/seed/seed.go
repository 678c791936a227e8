package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"quill/internal/aggregation"
	"quill/internal/models"

	"gorm.io/gorm"
)

// Options configure the demo seeder.
type Options struct {
	NumUsers int
	NumPosts int
	Clean    bool
}

// DefaultOptions returns the preset used by `quill seed` without flags.
func DefaultOptions() Options {
	return Options{NumUsers: 25, NumPosts: 60}
}

// Run populates the database with demo users, posts, ratings, comments and
// follows, then recomputes every aggregate so the seeded data is consistent
// with what the pipeline would have produced.
func Run(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 25
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = 60
	}

	if opts.Clean {
		if err := clean(db); err != nil {
			return fmt.Errorf("clean existing data: %w", err)
		}
	}

	f := NewFactory(db)
	// #nosec G404: acceptable for seeding
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		users = append(users, user)
	}
	// one moderator so the approval flow is usable out of the box
	if err := db.Model(users[0]).Update("is_staff", true).Error; err != nil {
		return fmt.Errorf("promote moderator: %w", err)
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		author := users[rng.Intn(len(users))]
		post, err := f.CreatePost(author, func(p *models.Post) {
			// leave roughly one in eight pending to exercise moderation
			p.IsApproved = rng.Intn(8) != 0
		})
		if err != nil {
			return fmt.Errorf("seed post: %w", err)
		}
		posts = append(posts, post)
	}

	ratings := 0
	for _, post := range posts {
		if !post.IsApproved {
			continue
		}
		for _, user := range users {
			if user.ID == post.UserID || rng.Intn(4) != 0 {
				continue
			}
			if _, err := f.CreateRating(user, post, 1+rng.Intn(5)); err != nil {
				return fmt.Errorf("seed rating: %w", err)
			}
			ratings++
		}
	}

	comments := 0
	for _, post := range posts {
		if !post.IsApproved {
			continue
		}
		for i := 0; i < rng.Intn(4); i++ {
			commenter := users[rng.Intn(len(users))]
			if _, err := f.CreateComment(commenter, post); err != nil {
				return fmt.Errorf("seed comment: %w", err)
			}
			comments++
		}
	}

	follows := 0
	for _, follower := range users {
		for _, followed := range users {
			if follower.ID == followed.ID || rng.Intn(5) != 0 {
				continue
			}
			if err := f.CreateFollow(follower, followed); err != nil {
				return fmt.Errorf("seed follow: %w", err)
			}
			follows++
		}
	}

	if err := refreshAggregates(db, posts, users); err != nil {
		return err
	}

	log.Printf("seeded %d users, %d posts, %d ratings, %d comments, %d follows",
		len(users), len(posts), ratings, comments, follows)
	return nil
}

// refreshAggregates runs the same recompute logic the worker uses, plus a
// bulk refresh of the denormalized follow counts.
func refreshAggregates(db *gorm.DB, posts []*models.Post, users []*models.User) error {
	ctx := context.Background()
	engine := aggregation.NewEngine(db)

	for _, post := range posts {
		if err := engine.RecomputePostStats(ctx, post.ID); err != nil {
			return fmt.Errorf("recompute post %d: %w", post.ID, err)
		}
	}
	for _, user := range users {
		if err := engine.RecomputeUserScore(ctx, user.ID); err != nil {
			return fmt.Errorf("recompute user %d: %w", user.ID, err)
		}
	}

	return db.Exec(`
		UPDATE profiles SET
			follower_count  = (SELECT COUNT(*) FROM follows WHERE followed_id = profiles.user_id),
			following_count = (SELECT COUNT(*) FROM follows WHERE follower_id = profiles.user_id)
	`).Error
}

func clean(db *gorm.DB) error {
	tables := []string{
		"notifications", "profile_tags", "follows", "ratings", "comments",
		"posts", "popularity_metrics", "profiles", "totp_devices",
		"blacklisted_tokens", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
