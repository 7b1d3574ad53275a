package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type RedisCacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache *RedisCache
}

func (s *RedisCacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.cache = NewRedisCache(db, "test:", time.Hour)
}

func (s *RedisCacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func (s *RedisCacheTestSuite) TestGet_Hit() {
	s.mock.ExpectGet("test:k").SetVal("payload")

	val, found := s.cache.Get(context.Background(), "k")
	s.True(found)
	s.Equal("payload", string(val))
}

func (s *RedisCacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:k").RedisNil()

	_, found := s.cache.Get(context.Background(), "k")
	s.False(found)
}

func (s *RedisCacheTestSuite) TestGet_ErrorIsMiss() {
	s.mock.ExpectGet("test:k").SetErr(errors.New("connection reset"))

	_, found := s.cache.Get(context.Background(), "k")
	s.False(found)
}

func (s *RedisCacheTestSuite) TestSet_DefaultTTL() {
	s.mock.ExpectSet("test:k", []byte("v"), time.Hour).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "k", []byte("v"), 0))
}

func (s *RedisCacheTestSuite) TestSet_ExplicitTTL() {
	s.mock.ExpectSet("test:k", []byte("v"), time.Minute).SetVal("OK")

	s.NoError(s.cache.Set(context.Background(), "k", []byte("v"), time.Minute))
}

func (s *RedisCacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k").SetVal(1)

	s.NoError(s.cache.Delete(context.Background(), "k"))
}

func TestRedisCacheTestSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheTestSuite))
}
