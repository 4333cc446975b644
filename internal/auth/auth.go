package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"spacesim/internal/store"
)

const (
	DefaultShipTokenTTL = 24 * time.Hour
	operatorTokenTTL    = 7 * 24 * time.Hour
	bcryptCost          = 12
	minPasswordLen      = 8
	minUsernameLen      = 2
	maxUsernameLen      = 32
	loginRateWindow     = 60 * time.Second
	maxLoginAttempts    = 10
	secretSetting       = "jwt_secret"
)

const (
	kindShip     = "ship"
	kindOperator = "op"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrRateLimited  = errors.New("too many login attempts, try again later")
	ErrBadLogin     = errors.New("invalid username or password")
)

// ShipClaims authorize one agent host to fly one ship of one match
type ShipClaims struct {
	Match   string
	Ship    string
	Expires time.Time
}

// Auth issues and verifies tokens and manages operator accounts
type Auth struct {
	db     *store.DB
	secret []byte
	log    zerolog.Logger

	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// New creates an Auth. A non-empty secret wins; otherwise the secret is
// loaded from the store, or generated and persisted there. db may be nil,
// which disables operator accounts.
func New(db *store.DB, secret string, log zerolog.Logger) (*Auth, error) {
	a := &Auth{db: db, log: log, rateMap: make(map[string]*rateEntry)}
	if secret != "" {
		a.secret = []byte(secret)
		return a, nil
	}
	s, err := loadOrCreateSecret(db, log)
	if err != nil {
		return nil, err
	}
	a.secret = s
	return a, nil
}

// loadOrCreateSecret loads the signing secret from the database, or
// generates and persists a new one if none exists
func loadOrCreateSecret(db *store.DB, log zerolog.Logger) ([]byte, error) {
	if db != nil {
		h, err := db.GetSetting(secretSetting)
		if err != nil {
			return nil, fmt.Errorf("load secret: %w", err)
		}
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b, nil
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	if db != nil {
		if err := db.SetSetting(secretSetting, hex.EncodeToString(secret)); err != nil {
			log.Warn().Err(err).Msg("could not persist token secret")
		}
	}
	return secret, nil
}

// IssueShipToken signs a token for an agent host. ttl <= 0 uses
// DefaultShipTokenTTL.
func (a *Auth) IssueShipToken(match, ship string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultShipTokenTTL
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"typ": kindShip,
		"mid": match,
		"sid": ship,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// VerifyShipToken validates a ship token
func (a *Auth) VerifyShipToken(tokenStr string) (ShipClaims, error) {
	claims, err := a.parse(tokenStr, kindShip)
	if err != nil {
		return ShipClaims{}, err
	}
	match, _ := claims["mid"].(string)
	ship, _ := claims["sid"].(string)
	if match == "" || ship == "" {
		return ShipClaims{}, fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	out := ShipClaims{Match: match, Ship: ship}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.Expires = exp.Time
	}
	return out, nil
}

func (a *Auth) parse(tokenStr, kind string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != kind {
		return nil, fmt.Errorf("%w: wrong token kind", ErrInvalidToken)
	}
	return claims, nil
}

// Register creates an operator account and returns its token
func (a *Auth) Register(username, password string) (int64, string, error) {
	if a.db == nil {
		return 0, "", fmt.Errorf("accounts disabled")
	}
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return 0, "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return 0, "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	exists, err := a.db.OperatorExists(username)
	if err != nil {
		return 0, "", fmt.Errorf("check username: %w", err)
	}
	if exists {
		return 0, "", fmt.Errorf("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return 0, "", fmt.Errorf("hash password: %w", err)
	}
	id, err := a.db.CreateOperator(username, string(hash))
	if err != nil {
		return 0, "", fmt.Errorf("create operator: %w", err)
	}
	token, err := a.operatorToken(id, username)
	if err != nil {
		return 0, "", err
	}
	return id, token, nil
}

// Login authenticates an operator and returns a token
func (a *Auth) Login(username, password, ip string) (int64, string, error) {
	if a.db == nil {
		return 0, "", fmt.Errorf("accounts disabled")
	}
	if !a.checkRate(ip) {
		return 0, "", ErrRateLimited
	}

	op, err := a.db.GetOperator(username)
	if err != nil {
		return 0, "", fmt.Errorf("load operator: %w", err)
	}
	if op == nil {
		return 0, "", ErrBadLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PassHash), []byte(password)); err != nil {
		return 0, "", ErrBadLogin
	}
	token, err := a.operatorToken(op.ID, op.Username)
	if err != nil {
		return 0, "", err
	}
	return op.ID, token, nil
}

// VerifyOperatorToken returns the operator id and name of a valid token
func (a *Auth) VerifyOperatorToken(tokenStr string) (int64, string, error) {
	claims, err := a.parse(tokenStr, kindOperator)
	if err != nil {
		return 0, "", err
	}
	oid, ok := claims["oid"].(float64)
	if !ok {
		return 0, "", fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return 0, "", fmt.Errorf("%w: missing claims", ErrInvalidToken)
	}
	return int64(oid), username, nil
}

func (a *Auth) operatorToken(id int64, username string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"typ": kindOperator,
		"oid": id,
		"usr": username,
		"exp": now.Add(operatorTokenTTL).Unix(),
		"iat": now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}
