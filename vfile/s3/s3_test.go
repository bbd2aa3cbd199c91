package s3

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-netcdf/vfile"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.HeadObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestNew(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		client := new(MockS3Client)
		client.On("HeadObject", mock.Anything, mock.MatchedBy(func(input *s3.HeadObjectInput) bool {
			return *input.Bucket == "data" && *input.Key == "missing.nc"
		})).Return(nil, &types.NotFound{}).Once()

		_, err := New(context.Background(), client, "data", "missing.nc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		client := new(MockS3Client)
		client.On("HeadObject", mock.Anything, mock.Anything).Return(&s3.HeadObjectOutput{
			ContentLength: aws.Int64(1000),
		}, nil).Once()

		src, err := New(context.Background(), client, "data", "air.nc")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), src.TotalSize())
		client.AssertExpectations(t)
	})
}

func TestReadPastEndIssuesOneRange(t *testing.T) {
	client := new(MockS3Client)
	client.On("HeadObject", mock.Anything, mock.Anything).Return(&s3.HeadObjectOutput{
		ContentLength: aws.Int64(1000),
	}, nil).Once()
	client.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Range == "bytes=900-999"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(strings.Repeat("x", 100))),
	}, nil).Once()

	f, err := Open(context.Background(), client, "data", "air.nc")
	require.NoError(t, err)

	_, err = f.Seek(900, io.SeekStart)
	require.NoError(t, err)
	n, err := f.Read(make([]byte, 2000))
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	client.AssertExpectations(t)
}

func TestReadSliceShortBody(t *testing.T) {
	client := new(MockS3Client)
	client.On("GetObject", mock.Anything, mock.Anything).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("ab")),
	}, nil).Once()

	src := &Source{ctx: context.Background(), client: client, bucket: "b", key: "k", size: 10}
	_, err := src.ReadSlice(0, 4)

	var fe *vfile.FetchError
	assert.ErrorAs(t, err, &fe)
}
