package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	ProfileKeyPrefix = "profile:%d"
	PostKeyPrefix    = "post:%d"
	MetricsKeyPrefix = "metrics:%d"
	PostListKey      = "posts:approved"
)

const (
	UserTTL     = 5 * time.Minute
	ProfileTTL  = 5 * time.Minute
	PostTTL     = 30 * time.Minute
	MetricsTTL  = 5 * time.Minute
	PostListTTL = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func MetricsKey(userID uint) string {
	return fmt.Sprintf(MetricsKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
	Invalidate(ctx, ProfileKey(userID))
	Invalidate(ctx, MetricsKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, PostListKey)
}

func InvalidatePostList(ctx context.Context) {
	Invalidate(ctx, PostListKey)
}
