package usersRepository

const (
	queryCreateUser = `
INSERT INTO users (id, email, name, password, created_at, updated_at)
VALUES (:id, :email, :name, :password, :created_at, :updated_at)`

	queryGetByID = `
SELECT id, email, name, password, created_at, updated_at
FROM users
    WHERE id = :id`

	queryGetByEmail = `
SELECT id, email, name, password, created_at, updated_at
FROM users
    WHERE email = :email`

	queryUpdateUser = `
UPDATE users
SET name = :name,
    password = :password,
    updated_at = :updated_at
WHERE id = :id`
)
