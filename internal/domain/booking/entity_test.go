package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	b := New(3, "Smith", 0, 100.0)

	assert.Equal(t, 0, b.ID)
	assert.False(t, b.Identified())
	assert.Equal(t, 3, b.Seat)
	assert.Equal(t, "Smith", b.Customer)
	assert.Equal(t, 0, b.Category)
	assert.Equal(t, 100.0, b.Price)
}

func TestNewIdentified(t *testing.T) {
	t.Run("正のIDで作成できる", func(t *testing.T) {
		b, err := NewIdentified(7, 3, "Smith", 1, 50.0)

		require.NoError(t, err)
		assert.True(t, b.Identified())
		assert.Equal(t, 7, b.ID)
	})

	t.Run("0以下のIDは作成できない", func(t *testing.T) {
		_, err := NewIdentified(0, 3, "Smith", 1, 50.0)
		assert.ErrorIs(t, err, ErrInvalidID)

		_, err = NewIdentified(-1, 3, "Smith", 1, 50.0)
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}

func TestBooking_Equal(t *testing.T) {
	t.Run("ID同士はIDで比較する", func(t *testing.T) {
		a, err := NewIdentified(1, 3, "Smith", 0, 100.0)
		require.NoError(t, err)
		b, err := NewIdentified(1, 4, "Jones", 1, 50.0)
		require.NoError(t, err)

		eq, err := a.Equal(b)
		require.NoError(t, err)
		assert.True(t, eq, "同じIDなら内容が違っても同一")

		c, err := NewIdentified(2, 3, "Smith", 0, 100.0)
		require.NoError(t, err)
		eq, err = a.Equal(c)
		require.NoError(t, err)
		assert.False(t, eq)
	})

	t.Run("IDなし同士はタプルで比較する", func(t *testing.T) {
		a := New(3, "Smith", 0, 100.0)
		b := New(3, "Smith", 0, 100.0)

		eq, err := a.Equal(b)
		require.NoError(t, err)
		assert.True(t, eq)

		tests := []struct {
			name  string
			other *Booking
		}{
			{"座席が異なる", New(4, "Smith", 0, 100.0)},
			{"顧客が異なる", New(3, "Jones", 0, 100.0)},
			{"カテゴリが異なる", New(3, "Smith", 1, 100.0)},
			{"価格が異なる", New(3, "Smith", 0, 50.0)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				eq, err := a.Equal(tt.other)
				require.NoError(t, err)
				assert.False(t, eq)
			})
		}
	})

	t.Run("ポリシー混在はエラーになる", func(t *testing.T) {
		identified, err := NewIdentified(1, 3, "Smith", 0, 100.0)
		require.NoError(t, err)
		unidentified := New(3, "Smith", 0, 100.0)

		_, err = identified.Equal(unidentified)
		assert.ErrorIs(t, err, ErrMixedIDPolicy)

		_, err = unidentified.Equal(identified)
		assert.ErrorIs(t, err, ErrMixedIDPolicy)
	})
}

func TestBooking_SameDetails(t *testing.T) {
	stored, err := NewIdentified(9, 3, "Smith", 0, 100.0)
	require.NoError(t, err)

	// IDが異なってもタプルが一致すれば照合できる
	claimed, err := NewIdentified(9, 3, "Smith", 0, 100.0)
	require.NoError(t, err)
	assert.True(t, stored.SameDetails(claimed))

	mismatch, err := NewIdentified(9, 3, "Brown", 0, 100.0)
	require.NoError(t, err)
	assert.False(t, stored.SameDetails(mismatch))
}

func TestBooking_Validate(t *testing.T) {
	tests := []struct {
		name    string
		booking *Booking
		wantErr error
	}{
		{"有効な予約", New(1, "Smith", 0, 100.0), nil},
		{"座席番号が0", New(0, "Smith", 0, 100.0), ErrInvalidSeat},
		{"顧客名が空", New(1, "", 0, 100.0), ErrCustomerRequired},
		{"カテゴリが負", New(1, "Smith", -1, 100.0), ErrInvalidCategory},
		{"価格が負", New(1, "Smith", 0, -1.0), ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.booking.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
