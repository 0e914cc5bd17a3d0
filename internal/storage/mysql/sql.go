package mysql

// reservation_number is the primary key; a replayed archive only refreshes
// the enrichment detail (COALESCE keeps the first non-NULL value written).
const insertReservationSQL = `
INSERT INTO reservations
  (reservation_number, transaction_id, offer_id, check_in, check_out, currency, amount, travellers, contact, offer, detail, committed_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  detail = COALESCE(VALUES(detail), reservations.detail)
`

const getReservationSQL = `
SELECT
  reservation_number,
  transaction_id,
  travellers,
  contact,
  offer,
  detail,
  committed_at
FROM reservations
WHERE reservation_number = ?
`
