package redis

const (
	// appendJournalScript appends a record to a day partition and refreshes
	// its TTL in one step so a partition never outlives its retention.
	appendJournalScript = `
local journal_key = KEYS[1]   -- timekeeper:journal:{user}:{date}

local record = ARGV[1]
local ttl_seconds = tonumber(ARGV[2])

local length = redis.call('RPUSH', journal_key, record)

if ttl_seconds > 0 then
  redis.call('EXPIRE', journal_key, ttl_seconds)
end

return length
`
)
